package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/buildcore-ai/be-ops-approvals/internal/database"
	"github.com/buildcore-ai/be-ops-approvals/internal/errors"
	"github.com/buildcore-ai/be-ops-approvals/internal/service"
	"github.com/buildcore-ai/be-ops-approvals/internal/workflow"
)

// WorkflowDefinitionRepository handles CRUD for workflow_definitions.
// Steps and conditions live in JSONB columns.
type WorkflowDefinitionRepository struct {
	db *database.DB
}

// NewWorkflowDefinitionRepository creates a new WorkflowDefinitionRepository.
func NewWorkflowDefinitionRepository(db *database.DB) *WorkflowDefinitionRepository {
	return &WorkflowDefinitionRepository{db: db}
}

var _ service.DefinitionStore = (*WorkflowDefinitionRepository)(nil)

// Save upserts a definition keyed on id. The whole row is replaced; there
// is no merge of partial fields.
func (r *WorkflowDefinitionRepository) Save(ctx context.Context, def *workflow.WorkflowDefinition) error {
	stepsJSON, err := json.Marshal(def.Steps)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal workflow steps")
	}
	conditionsJSON, err := json.Marshal(def.Conditions)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal workflow conditions")
	}

	query := `
		INSERT INTO workflow_definitions
		    (id, name, applies_to, is_active, priority, steps, conditions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name       = EXCLUDED.name,
		    applies_to = EXCLUDED.applies_to,
		    is_active  = EXCLUDED.is_active,
		    priority   = EXCLUDED.priority,
		    steps      = EXCLUDED.steps,
		    conditions = EXCLUDED.conditions,
		    updated_at = NOW()
		RETURNING created_at, updated_at
	`

	return r.db.QueryRow(ctx, query,
		def.ID,
		def.Name,
		def.AppliesTo,
		def.IsActive,
		def.Priority,
		stepsJSON,
		conditionsJSON,
	).Scan(&def.CreatedAt, &def.UpdatedAt)
}

// Get retrieves a definition by id.
func (r *WorkflowDefinitionRepository) Get(ctx context.Context, id string) (*workflow.WorkflowDefinition, error) {
	query := `
		SELECT id, name, applies_to, is_active, priority, steps, conditions,
		       created_at, updated_at
		FROM workflow_definitions
		WHERE id = $1
	`

	def, err := r.scanDefinition(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("workflow_definition", id)
	}
	return def, err
}

// List returns definitions ordered by priority ascending, then stored
// order, which is the matcher's evaluation order.
func (r *WorkflowDefinitionRepository) List(ctx context.Context, activeOnly bool) ([]*workflow.WorkflowDefinition, error) {
	query := `
		SELECT id, name, applies_to, is_active, priority, steps, conditions,
		       created_at, updated_at
		FROM workflow_definitions
	`
	if activeOnly {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY priority ASC, created_at ASC"

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list workflow definitions")
	}
	defer rows.Close()

	defs := []*workflow.WorkflowDefinition{}
	for rows.Next() {
		def, err := r.scanDefinition(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan workflow definition")
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// ── scan helper ──────────────────────────────────────────────────────────────

type definitionScanner interface {
	Scan(dest ...any) error
}

func (r *WorkflowDefinitionRepository) scanDefinition(row definitionScanner) (*workflow.WorkflowDefinition, error) {
	def := &workflow.WorkflowDefinition{}
	var stepsJSON, conditionsJSON []byte

	err := row.Scan(
		&def.ID,
		&def.Name,
		&def.AppliesTo,
		&def.IsActive,
		&def.Priority,
		&stepsJSON,
		&conditionsJSON,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(stepsJSON, &def.Steps); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal workflow steps")
	}
	if err := json.Unmarshal(conditionsJSON, &def.Conditions); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal workflow conditions")
	}
	return def, nil
}
