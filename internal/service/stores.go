package service

import (
	"context"

	"github.com/buildcore-ai/be-ops-approvals/internal/workflow"
)

// The services reach persistence through these narrow interfaces.
// internal/repository implements them on Postgres; internal/store holds
// the in-memory implementation used by tests and database-less deployments.

// WorkItemFilter narrows List results. Nil fields match everything.
type WorkItemFilter struct {
	ProjectID *string
	Status    *workflow.Status
	Type      *workflow.WorkItemType
	CreatedBy *string
	Page      int
	PageSize  int
}

// WorkItemStore persists work items. Update is optimistic: it succeeds only
// when the stored version equals the version the item was read at, then
// increments it. A mismatch fails with a CONFLICT error and writes nothing.
type WorkItemStore interface {
	Create(ctx context.Context, item *workflow.WorkItem) error
	Get(ctx context.Context, id string) (*workflow.WorkItem, error)
	Update(ctx context.Context, item *workflow.WorkItem) error
	List(ctx context.Context, filter WorkItemFilter) ([]*workflow.WorkItem, int, error)
}

// DefinitionStore persists workflow definitions. Save is an upsert keyed on
// id replacing the whole definition; there is no partial merge. List returns
// definitions ordered by priority ascending, then stored order.
type DefinitionStore interface {
	Save(ctx context.Context, def *workflow.WorkflowDefinition) error
	Get(ctx context.Context, id string) (*workflow.WorkflowDefinition, error)
	List(ctx context.Context, activeOnly bool) ([]*workflow.WorkflowDefinition, error)
}

// AuditStore appends and reads the immutable approval audit log.
type AuditStore interface {
	Append(ctx context.Context, entry *workflow.AuditEntry) error
	ListByWorkItem(ctx context.Context, workItemID string) ([]*workflow.AuditEntry, error)
}
