package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildcore-ai/be-ops-approvals/internal/errors"
	"github.com/buildcore-ai/be-ops-approvals/internal/service"
	"github.com/buildcore-ai/be-ops-approvals/internal/workflow"
)

func newItem(id, project string, status workflow.Status) *workflow.WorkItem {
	return &workflow.WorkItem{
		ID:        id,
		Type:      workflow.TypePurchase,
		Status:    status,
		Priority:  workflow.PriorityMedium,
		Title:     "item " + id,
		Amount:    1000,
		Currency:  "USD",
		ProjectID: project,
		CreatedBy: "user-1",
	}
}

func TestMemoryWorkItemsCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryWorkItems()

	item := newItem("wi-1", "proj-1", workflow.StatusDraft)
	require.NoError(t, s.Create(ctx, item))
	assert.Equal(t, int64(1), item.Version)
	assert.False(t, item.CreatedAt.IsZero())

	got, err := s.Get(ctx, "wi-1")
	require.NoError(t, err)
	assert.Equal(t, "wi-1", got.ID)
	assert.Equal(t, int64(1), got.Version)

	// Duplicate ids are rejected.
	err = s.Create(ctx, newItem("wi-1", "proj-1", workflow.StatusDraft))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))

	_, err = s.Get(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestMemoryWorkItemsGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryWorkItems()
	require.NoError(t, s.Create(ctx, newItem("wi-1", "proj-1", workflow.StatusDraft)))

	first, err := s.Get(ctx, "wi-1")
	require.NoError(t, err)
	first.Title = "mutated"

	second, err := s.Get(ctx, "wi-1")
	require.NoError(t, err)
	assert.Equal(t, "item wi-1", second.Title)
}

func TestMemoryWorkItemsGetCanonicalizesLegacyStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryWorkItems()
	require.NoError(t, s.Create(ctx, newItem("wi-old", "proj-1", workflow.StatusInReview)))

	got, err := s.Get(ctx, "wi-old")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSubmitted, got.Status)
}

func TestMemoryWorkItemsUpdateVersionGuard(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryWorkItems()
	require.NoError(t, s.Create(ctx, newItem("wi-1", "proj-1", workflow.StatusSubmitted)))

	// Two readers load version 1.
	a, err := s.Get(ctx, "wi-1")
	require.NoError(t, err)
	b, err := s.Get(ctx, "wi-1")
	require.NoError(t, err)

	a.Status = workflow.StatusApprovedL1
	require.NoError(t, s.Update(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	// The slower writer fails with a conflict and writes nothing.
	b.Status = workflow.StatusRejected
	err = s.Update(ctx, b)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))

	got, err := s.Get(ctx, "wi-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApprovedL1, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestMemoryWorkItemsListFiltersAndPaging(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryWorkItems()
	require.NoError(t, s.Create(ctx, newItem("wi-1", "proj-1", workflow.StatusDraft)))
	require.NoError(t, s.Create(ctx, newItem("wi-2", "proj-1", workflow.StatusSubmitted)))
	require.NoError(t, s.Create(ctx, newItem("wi-3", "proj-2", workflow.StatusSubmitted)))

	proj := "proj-1"
	items, total, err := s.List(ctx, service.WorkItemFilter{ProjectID: &proj})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	submitted := workflow.StatusSubmitted
	items, total, err = s.List(ctx, service.WorkItemFilter{Status: &submitted})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	items, total, err = s.List(ctx, service.WorkItemFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "wi-3", items[0].ID)

	items, _, err = s.List(ctx, service.WorkItemFilter{Page: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryDefinitionsSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDefinitions()

	def := workflow.NewWorkflowDefinition("large purchases", workflow.TypePurchase)
	def.Priority = 10
	def.Steps = []workflow.WorkflowStep{
		{StepNo: 1, RoleRequired: workflow.RoleManager},
		{StepNo: 2, RoleRequired: workflow.RoleDirector},
	}
	def.Conditions = []workflow.Condition{
		{Field: "amount", Op: workflow.OpGT, Value: 50000},
	}
	require.NoError(t, s.Save(ctx, def))
	require.False(t, def.CreatedAt.IsZero())

	got, err := s.Get(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, def.Name, got.Name)
	assert.Equal(t, def.Steps, got.Steps)
	assert.Equal(t, def.Conditions, got.Conditions)

	// Re-save preserves CreatedAt.
	created := def.CreatedAt
	def.Name = "renamed"
	require.NoError(t, s.Save(ctx, def))
	assert.Equal(t, created, def.CreatedAt)
}

func TestMemoryDefinitionsListOrderAndActiveFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDefinitions()

	low := workflow.NewWorkflowDefinition("low", workflow.TypePurchase)
	low.Priority = 20
	high := workflow.NewWorkflowDefinition("high", workflow.TypePurchase)
	high.Priority = 5
	inactive := workflow.NewWorkflowDefinition("inactive", workflow.TypePurchase)
	inactive.IsActive = false

	require.NoError(t, s.Save(ctx, low))
	require.NoError(t, s.Save(ctx, high))
	require.NoError(t, s.Save(ctx, inactive))

	all, err := s.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "inactive", all[0].Name) // priority 0 sorts first
	assert.Equal(t, "high", all[1].Name)
	assert.Equal(t, "low", all[2].Name)

	active, err := s.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "high", active[0].Name)
}

func TestMemoryAuditAppendAndList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAudit()

	for _, action := range []string{workflow.AuditSubmitted, workflow.AuditApproved} {
		require.NoError(t, s.Append(ctx, &workflow.AuditEntry{
			WorkItemID:  "wi-1",
			ProjectID:   "proj-1",
			Action:      action,
			PerformedBy: "user-1",
		}))
	}
	require.NoError(t, s.Append(ctx, &workflow.AuditEntry{
		WorkItemID:  "wi-2",
		ProjectID:   "proj-1",
		Action:      workflow.AuditSubmitted,
		PerformedBy: "user-2",
	}))

	entries, err := s.ListByWorkItem(ctx, "wi-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, workflow.AuditSubmitted, entries[0].Action)
	assert.Equal(t, workflow.AuditApproved, entries[1].Action)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].PerformedAt.IsZero())
}
