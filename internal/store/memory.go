// Package store provides in-memory implementations of the service store
// interfaces, used by tests and STORE_DRIVER=memory deployments.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/buildcore-ai/be-ops-approvals/internal/errors"
	"github.com/buildcore-ai/be-ops-approvals/internal/service"
	"github.com/buildcore-ai/be-ops-approvals/internal/workflow"
)

var (
	_ service.WorkItemStore   = (*MemoryWorkItems)(nil)
	_ service.DefinitionStore = (*MemoryDefinitions)(nil)
	_ service.AuditStore      = (*MemoryAudit)(nil)
)

// ── work items ───────────────────────────────────────────────────────────────

// MemoryWorkItems is a mutex-guarded in-memory work item store. Items are
// deep-copied on the way in and out so callers never alias stored state.
type MemoryWorkItems struct {
	mu    sync.RWMutex
	items map[string]*workflow.WorkItem
	ids   []string // insertion order for stable listing
}

// NewMemoryWorkItems creates an empty work item store.
func NewMemoryWorkItems() *MemoryWorkItems {
	return &MemoryWorkItems{items: make(map[string]*workflow.WorkItem)}
}

func (m *MemoryWorkItems) Create(ctx context.Context, item *workflow.WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[item.ID]; exists {
		return errors.Newf(errors.ErrCodeConflict, "work item %s already exists", item.ID)
	}
	now := time.Now()
	item.Version = 1
	item.CreatedAt = now
	item.UpdatedAt = now
	m.items[item.ID] = item.Clone()
	m.ids = append(m.ids, item.ID)
	return nil
}

func (m *MemoryWorkItems) Get(ctx context.Context, id string) (*workflow.WorkItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok {
		return nil, errors.NotFound("work_item", id)
	}
	out := item.Clone()
	out.Status = out.Status.Canonical()
	return out, nil
}

// Update applies the optimistic version check: the stored version must equal
// the version the caller read, or nothing is written.
func (m *MemoryWorkItems) Update(ctx context.Context, item *workflow.WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.items[item.ID]
	if !ok {
		return errors.NotFound("work_item", item.ID)
	}
	if stored.Version != item.Version {
		return errors.Newf(errors.ErrCodeConflict,
			"work item %s was modified concurrently (version %d, expected %d)",
			item.ID, stored.Version, item.Version)
	}
	item.Version++
	item.UpdatedAt = time.Now()
	m.items[item.ID] = item.Clone()
	return nil
}

func (m *MemoryWorkItems) List(ctx context.Context, filter service.WorkItemFilter) ([]*workflow.WorkItem, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []*workflow.WorkItem{}
	for _, id := range m.ids {
		item := m.items[id]
		if filter.ProjectID != nil && item.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.Status != nil && item.Status.Canonical() != *filter.Status {
			continue
		}
		if filter.Type != nil && item.Type != *filter.Type {
			continue
		}
		if filter.CreatedBy != nil && item.CreatedBy != *filter.CreatedBy {
			continue
		}
		out := item.Clone()
		out.Status = out.Status.Canonical()
		matched = append(matched, out)
	}

	total := len(matched)
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		return matched, total, nil
	}
	start := (page - 1) * size
	if start >= total {
		return []*workflow.WorkItem{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// ── workflow definitions ─────────────────────────────────────────────────────

// MemoryDefinitions is an in-memory workflow definition store. Stored order
// is insertion order, which the matcher uses to break priority ties.
type MemoryDefinitions struct {
	mu   sync.RWMutex
	defs map[string]*workflow.WorkflowDefinition
	ids  []string
}

// NewMemoryDefinitions creates an empty definition store.
func NewMemoryDefinitions() *MemoryDefinitions {
	return &MemoryDefinitions{defs: make(map[string]*workflow.WorkflowDefinition)}
}

// Save upserts by id, replacing the whole definition.
func (m *MemoryDefinitions) Save(ctx context.Context, def *workflow.WorkflowDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, exists := m.defs[def.ID]; exists {
		def.CreatedAt = existing.CreatedAt
	} else {
		def.CreatedAt = now
		m.ids = append(m.ids, def.ID)
	}
	def.UpdatedAt = now
	m.defs[def.ID] = cloneDefinition(def)
	return nil
}

func (m *MemoryDefinitions) Get(ctx context.Context, id string) (*workflow.WorkflowDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	def, ok := m.defs[id]
	if !ok {
		return nil, errors.NotFound("workflow_definition", id)
	}
	return cloneDefinition(def), nil
}

func (m *MemoryDefinitions) List(ctx context.Context, activeOnly bool) ([]*workflow.WorkflowDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*workflow.WorkflowDefinition, 0, len(m.ids))
	for _, id := range m.ids {
		def := m.defs[id]
		if activeOnly && !def.IsActive {
			continue
		}
		out = append(out, cloneDefinition(def))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out, nil
}

// ── audit log ────────────────────────────────────────────────────────────────

// MemoryAudit is an in-memory append-only audit log.
type MemoryAudit struct {
	mu      sync.RWMutex
	entries []*workflow.AuditEntry
}

// NewMemoryAudit creates an empty audit log.
func NewMemoryAudit() *MemoryAudit {
	return &MemoryAudit{}
}

func (m *MemoryAudit) Append(ctx context.Context, entry *workflow.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = time.Now()
	}
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MemoryAudit) ListByWorkItem(ctx context.Context, workItemID string) ([]*workflow.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*workflow.AuditEntry{}
	for _, entry := range m.entries {
		if entry.WorkItemID == workItemID {
			cp := *entry
			out = append(out, &cp)
		}
	}
	return out, nil
}

func cloneDefinition(def *workflow.WorkflowDefinition) *workflow.WorkflowDefinition {
	cp := *def
	cp.Steps = make([]workflow.WorkflowStep, len(def.Steps))
	copy(cp.Steps, def.Steps)
	cp.Conditions = make([]workflow.Condition, len(def.Conditions))
	copy(cp.Conditions, def.Conditions)
	return &cp
}
