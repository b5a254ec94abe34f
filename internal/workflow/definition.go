package workflow

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowStep is a step template inside a definition. It is copied into
// ApprovalChainEntry instances when a chain is generated.
type WorkflowStep struct {
	StepNo       int  `json:"step_no" validate:"gte=1"`
	RoleRequired Role `json:"role_required" validate:"required"`
	RequireNote  bool `json:"require_note"`
}

// WorkflowDefinition is an administrator-authored template describing a
// conditional, role-sequenced approval chain for one work item type.
//
// Matching is first-match-wins over active definitions ordered by Priority
// ascending (lower evaluated first), ties broken by stored order. A
// definition with zero conditions matches unconditionally.
type WorkflowDefinition struct {
	ID         string         `json:"id"`
	Name       string         `json:"name" validate:"required"`
	AppliesTo  WorkItemType   `json:"applies_to" validate:"required"`
	IsActive   bool           `json:"is_active"`
	Priority   int            `json:"priority"`
	Steps      []WorkflowStep `json:"steps" validate:"dive"`
	Conditions []Condition    `json:"conditions" validate:"dive"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewWorkflowDefinition returns a fresh, active definition with no steps or
// conditions. Callers populate steps/conditions and save through the studio.
func NewWorkflowDefinition(name string, appliesTo WorkItemType) *WorkflowDefinition {
	return &WorkflowDefinition{
		ID:         uuid.NewString(),
		Name:       name,
		AppliesTo:  appliesTo,
		IsActive:   true,
		Steps:      []WorkflowStep{},
		Conditions: []Condition{},
	}
}

// RenumberSteps rewrites step numbers to be contiguous starting at 1,
// preserving order. Called after a step deletion so deleting step 2 of 3
// turns the former step 3 into step 2.
func RenumberSteps(steps []WorkflowStep) []WorkflowStep {
	out := make([]WorkflowStep, len(steps))
	copy(out, steps)
	for i := range out {
		out[i].StepNo = i + 1
	}
	return out
}
