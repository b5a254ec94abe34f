package workflow

import "time"

// Audit actions recorded alongside the work item timeline.
const (
	AuditSubmitted     = "submitted"
	AuditApproved      = "approved"
	AuditRejected      = "rejected"
	AuditInfoRequested = "info_requested"
	AuditCancelled     = "cancelled"
	AuditStatusChanged = "status_changed"
)

// AuditEntry is one immutable record in the approval audit log. The log is
// append-only: entries are never updated or deleted.
type AuditEntry struct {
	ID           string         `json:"id"`
	WorkItemID   string         `json:"work_item_id"`
	ProjectID    string         `json:"project_id"`
	Action       string         `json:"action"`
	PerformedBy  string         `json:"performed_by"`
	PerformedAt  time.Time      `json:"performed_at"`
	StatusBefore *Status        `json:"status_before,omitempty"`
	StatusAfter  *Status        `json:"status_after,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
