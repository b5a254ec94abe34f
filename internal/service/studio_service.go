package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/buildcore-ai/be-ops-approvals/internal/errors"
	"github.com/buildcore-ai/be-ops-approvals/internal/workflow"
)

// StudioService backs the workflow authoring tool: definition CRUD with
// activation control and step maintenance.
type StudioService struct {
	defs     DefinitionStore
	validate *validator.Validate
	log      zerolog.Logger
}

// NewStudioService creates a new StudioService.
func NewStudioService(defs DefinitionStore, log zerolog.Logger) *StudioService {
	return &StudioService{
		defs:     defs,
		validate: validator.New(),
		log:      log,
	}
}

// Save validates and upserts a definition keyed on id. The stored
// definition is replaced wholesale; there is no partial merge. A missing id
// gets a fresh one so Save doubles as create.
func (s *StudioService) Save(ctx context.Context, def *workflow.WorkflowDefinition) (*workflow.WorkflowDefinition, error) {
	if def.ID == "" {
		created := workflow.NewWorkflowDefinition(def.Name, def.AppliesTo)
		created.IsActive = def.IsActive
		created.Priority = def.Priority
		created.Steps = def.Steps
		created.Conditions = def.Conditions
		def = created
	}

	if err := s.validate.Struct(def); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid workflow definition")
	}
	if !workflow.ValidWorkItemType(def.AppliesTo) {
		return nil, errors.InvalidInput("applies_to", "unknown work item type")
	}
	for i, step := range def.Steps {
		if step.StepNo != i+1 {
			return nil, errors.InvalidInput("steps",
				"step numbers must be contiguous starting at 1")
		}
	}
	for _, cond := range def.Conditions {
		if cond.Op != workflow.OpGT && cond.Op != workflow.OpLT && cond.Op != workflow.OpEQ {
			return nil, errors.InvalidInput("conditions", "operator must be GT, LT or EQ")
		}
	}

	if err := s.defs.Save(ctx, def); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("definition_id", def.ID).
		Str("name", def.Name).
		Str("applies_to", string(def.AppliesTo)).
		Int("steps", len(def.Steps)).
		Msg("Workflow definition saved")

	return def, nil
}

// Get returns one definition by id.
func (s *StudioService) Get(ctx context.Context, id string) (*workflow.WorkflowDefinition, error) {
	return s.defs.Get(ctx, id)
}

// List returns all definitions in matcher evaluation order.
func (s *StudioService) List(ctx context.Context) ([]*workflow.WorkflowDefinition, error) {
	return s.defs.List(ctx, false)
}

// SetActive toggles a definition's active flag. Inactive definitions are
// never matched but remain stored; definitions are never auto-deleted.
func (s *StudioService) SetActive(ctx context.Context, id string, active bool) (*workflow.WorkflowDefinition, error) {
	def, err := s.defs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	def.IsActive = active
	if err := s.defs.Save(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// DeleteStep removes one step from a definition and renumbers the rest so
// step numbers stay contiguous from 1.
func (s *StudioService) DeleteStep(ctx context.Context, id string, stepNo int) (*workflow.WorkflowDefinition, error) {
	def, err := s.defs.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, step := range def.Steps {
		if step.StepNo == stepNo {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.Newf(errors.ErrCodeNotFound,
			"definition %s has no step %d", id, stepNo)
	}

	def.Steps = workflow.RenumberSteps(append(def.Steps[:idx], def.Steps[idx+1:]...))
	if err := s.defs.Save(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}
