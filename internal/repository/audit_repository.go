package repository

import (
	"context"
	"encoding/json"

	"github.com/buildcore-ai/be-ops-approvals/internal/database"
	"github.com/buildcore-ai/be-ops-approvals/internal/errors"
	"github.com/buildcore-ai/be-ops-approvals/internal/service"
	"github.com/buildcore-ai/be-ops-approvals/internal/workflow"
)

// AuditRepository appends and reads immutable approval audit log entries.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

var _ service.AuditStore = (*AuditRepository)(nil)

// Append inserts one audit entry. The table has a delete-prevention trigger
// so this is the only mutation operation exposed.
func (r *AuditRepository) Append(ctx context.Context, entry *workflow.AuditEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal audit metadata")
		}
	}

	query := `
		INSERT INTO approval_audit_log
		    (work_item_id, project_id, action, performed_by,
		     status_before, status_after, metadata)
		VALUES ($1, $2, $3, $4,
		        $5, $6, $7)
		RETURNING id, performed_at
	`

	return r.db.QueryRow(ctx, query,
		entry.WorkItemID,
		entry.ProjectID,
		entry.Action,
		entry.PerformedBy,
		entry.StatusBefore,
		entry.StatusAfter,
		metadataJSON,
	).Scan(&entry.ID, &entry.PerformedAt)
}

// ListByWorkItem returns the full audit trail for a work item oldest-first.
func (r *AuditRepository) ListByWorkItem(ctx context.Context, workItemID string) ([]*workflow.AuditEntry, error) {
	query := `
		SELECT id, work_item_id, project_id, action, performed_by, performed_at,
		       status_before, status_after, metadata
		FROM approval_audit_log
		WHERE work_item_id = $1
		ORDER BY performed_at ASC
	`

	rows, err := r.db.Query(ctx, query, workItemID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get audit log")
	}
	defer rows.Close()

	entries := []*workflow.AuditEntry{}
	for rows.Next() {
		entry := &workflow.AuditEntry{}
		var before, after *string
		var metadataJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.WorkItemID,
			&entry.ProjectID,
			&entry.Action,
			&entry.PerformedBy,
			&entry.PerformedAt,
			&before,
			&after,
			&metadataJSON,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan audit entry")
		}

		if before != nil {
			s := workflow.Status(*before)
			entry.StatusBefore = &s
		}
		if after != nil {
			s := workflow.Status(*after)
			entry.StatusAfter = &s
		}
		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal audit metadata")
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
