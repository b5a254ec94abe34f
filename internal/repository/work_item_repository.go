package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/buildcore-ai/be-ops-approvals/internal/database"
	"github.com/buildcore-ai/be-ops-approvals/internal/errors"
	"github.com/buildcore-ai/be-ops-approvals/internal/service"
	"github.com/buildcore-ai/be-ops-approvals/internal/workflow"
)

// WorkItemRepository persists work items in Postgres. Embedded documents
// (timeline, request data, procurement, invoice, payment, RACI) live in
// JSONB columns; updates are guarded by the version column.
type WorkItemRepository struct {
	db *database.DB
}

// NewWorkItemRepository creates a new WorkItemRepository.
func NewWorkItemRepository(db *database.DB) *WorkItemRepository {
	return &WorkItemRepository{db: db}
}

var _ service.WorkItemStore = (*WorkItemRepository)(nil)

const workItemColumns = `
	id, type, status, priority, title, amount, currency,
	project_id, site_id, created_by,
	timeline, request_data, procurement, invoice, payment, raci,
	version, created_at, updated_at`

// Create inserts a new work item with version 1.
func (r *WorkItemRepository) Create(ctx context.Context, item *workflow.WorkItem) error {
	docs, err := marshalDocs(item)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO work_items
		    (id, type, status, priority, title, amount, currency,
		     project_id, site_id, created_by,
		     timeline, request_data, procurement, invoice, payment, raci,
		     version)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
		        $8, $9, $10,
		        $11, $12, $13, $14, $15, $16,
		        1)
		RETURNING version, created_at, updated_at
	`

	return r.db.QueryRow(ctx, query,
		item.ID,
		item.Type,
		item.Status,
		item.Priority,
		item.Title,
		item.Amount,
		item.Currency,
		item.ProjectID,
		item.SiteID,
		item.CreatedBy,
		docs.timeline,
		docs.requestData,
		docs.procurement,
		docs.invoice,
		docs.payment,
		docs.raci,
	).Scan(&item.Version, &item.CreatedAt, &item.UpdatedAt)
}

// Get retrieves a work item by id, normalizing legacy statuses.
func (r *WorkItemRepository) Get(ctx context.Context, id string) (*workflow.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items WHERE id = $1`

	item, err := r.scanItem(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("work_item", id)
	}
	return item, err
}

// Update replaces the mutable columns, incrementing the version. The write
// succeeds only when the stored version equals the version the caller read;
// a stale version writes nothing and fails with CONFLICT.
func (r *WorkItemRepository) Update(ctx context.Context, item *workflow.WorkItem) error {
	docs, err := marshalDocs(item)
	if err != nil {
		return err
	}

	query := `
		UPDATE work_items
		SET status       = $3,
		    priority     = $4,
		    title        = $5,
		    amount       = $6,
		    currency     = $7,
		    site_id      = $8,
		    timeline     = $9,
		    request_data = $10,
		    procurement  = $11,
		    invoice      = $12,
		    payment      = $13,
		    raci         = $14,
		    version      = version + 1,
		    updated_at   = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`

	err = r.db.QueryRow(ctx, query,
		item.ID,
		item.Version,
		item.Status,
		item.Priority,
		item.Title,
		item.Amount,
		item.Currency,
		item.SiteID,
		docs.timeline,
		docs.requestData,
		docs.procurement,
		docs.invoice,
		docs.payment,
		docs.raci,
	).Scan(&item.Version, &item.UpdatedAt)

	if err == pgx.ErrNoRows {
		return errors.Newf(errors.ErrCodeConflict,
			"work item %s not found or modified concurrently", item.ID)
	}
	return err
}

// List returns work items matching the filter, newest first, with a total
// count for paging.
func (r *WorkItemRepository) List(ctx context.Context, filter service.WorkItemFilter) ([]*workflow.WorkItem, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	addArg := func(clause string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(clause, len(args))
	}
	if filter.ProjectID != nil {
		addArg(" AND project_id = $%d", *filter.ProjectID)
	}
	if filter.Status != nil {
		addArg(" AND status = $%d", *filter.Status)
	}
	if filter.Type != nil {
		addArg(" AND type = $%d", *filter.Type)
	}
	if filter.CreatedBy != nil {
		addArg(" AND created_by = $%d", *filter.CreatedBy)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM work_items"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count work items")
	}

	query := `SELECT ` + workItemColumns + ` FROM work_items` + where + ` ORDER BY created_at DESC`
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.PageSize)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, (page-1)*filter.PageSize)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list work items")
	}
	defer rows.Close()

	items := []*workflow.WorkItem{}
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan work item")
		}
		items = append(items, item)
	}
	return items, total, nil
}

// ── scan helpers ─────────────────────────────────────────────────────────────

type jsonDocs struct {
	timeline    []byte
	requestData []byte
	procurement []byte
	invoice     []byte
	payment     []byte
	raci        []byte
}

func marshalDocs(item *workflow.WorkItem) (*jsonDocs, error) {
	docs := &jsonDocs{}
	for _, field := range []struct {
		dst *[]byte
		src any
	}{
		{&docs.timeline, item.Timeline},
		{&docs.requestData, item.RequestData},
		{&docs.procurement, item.Procurement},
		{&docs.invoice, item.Invoice},
		{&docs.payment, item.Payment},
		{&docs.raci, item.RACI},
	} {
		data, err := json.Marshal(field.src)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal work item document")
		}
		*field.dst = data
	}
	return docs, nil
}

type itemScanner interface {
	Scan(dest ...any) error
}

func (r *WorkItemRepository) scanItem(row itemScanner) (*workflow.WorkItem, error) {
	item := &workflow.WorkItem{}
	docs := jsonDocs{}

	err := row.Scan(
		&item.ID,
		&item.Type,
		&item.Status,
		&item.Priority,
		&item.Title,
		&item.Amount,
		&item.Currency,
		&item.ProjectID,
		&item.SiteID,
		&item.CreatedBy,
		&docs.timeline,
		&docs.requestData,
		&docs.procurement,
		&docs.invoice,
		&docs.payment,
		&docs.raci,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, field := range []struct {
		src []byte
		dst any
	}{
		{docs.timeline, &item.Timeline},
		{docs.requestData, &item.RequestData},
		{docs.procurement, &item.Procurement},
		{docs.invoice, &item.Invoice},
		{docs.payment, &item.Payment},
		{docs.raci, &item.RACI},
	} {
		if field.src == nil {
			continue
		}
		if err := json.Unmarshal(field.src, field.dst); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal work item document")
		}
	}

	item.Status = item.Status.Canonical()
	return item, nil
}
