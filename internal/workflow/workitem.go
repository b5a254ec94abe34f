package workflow

import "time"

// WorkItemType classifies the request flowing through the pipeline.
type WorkItemType string

const (
	TypePurchase     WorkItemType = "PURCHASE"
	TypeMaterial     WorkItemType = "MATERIAL"
	TypeService      WorkItemType = "SERVICE"
	TypeExpense      WorkItemType = "EXPENSE"
	TypeAdvance      WorkItemType = "ADVANCE"
	TypeTask         WorkItemType = "TASK"
	TypeRequest      WorkItemType = "REQUEST"
	TypeSiteApproval WorkItemType = "SITE_APPROVAL"
)

// ValidWorkItemType reports whether t is a known work item type.
func ValidWorkItemType(t WorkItemType) bool {
	switch t {
	case TypePurchase, TypeMaterial, TypeService, TypeExpense,
		TypeAdvance, TypeTask, TypeRequest, TypeSiteApproval:
		return true
	}
	return false
}

// Priority is a coarse urgency marker; it carries no workflow semantics.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// TimelineEventType tags entries in a work item's audit timeline.
type TimelineEventType string

const (
	EventCreated      TimelineEventType = "CREATED"
	EventSubmitted    TimelineEventType = "SUBMITTED"
	EventApproval     TimelineEventType = "APPROVAL"
	EventRejection    TimelineEventType = "REJECTION"
	EventStatusChange TimelineEventType = "STATUS_CHANGE"
)

// TimelineEvent is one immutable record in a work item's history.
// The timeline is append-only; events are never mutated or reordered.
type TimelineEvent struct {
	ID           string            `json:"id"`
	Type         TimelineEventType `json:"type"`
	ActorID      string            `json:"actor_id"`
	At           time.Time         `json:"at"`
	StatusBefore *Status           `json:"status_before,omitempty"`
	StatusAfter  *Status           `json:"status_after,omitempty"`
	StepNo       *int              `json:"step_no,omitempty"`
	Note         *string           `json:"note,omitempty"`
}

// DecisionStatus is the state of one approval chain entry.
type DecisionStatus string

const (
	DecisionPending  DecisionStatus = "PENDING"
	DecisionApproved DecisionStatus = "APPROVED"
	DecisionRejected DecisionStatus = "REJECTED"
)

// ApprovalChainEntry is one materialized step of a work item's approval
// chain. Step numbers are contiguous starting at 1; the lowest-numbered
// PENDING entry is the only one eligible for a decision.
type ApprovalChainEntry struct {
	StepNo       int            `json:"step_no"`
	RoleRequired Role           `json:"role_required"`
	RequireNote  bool           `json:"require_note"`
	Status       DecisionStatus `json:"status"`
	UserID       *string        `json:"user_id,omitempty"`
	DecidedAt    *time.Time     `json:"decided_at,omitempty"`
	Note         *string        `json:"note,omitempty"`
}

// RequestData holds the monetary request detail and the approval chain.
type RequestData struct {
	Amount        int64                `json:"amount"` // cents
	Currency      string               `json:"currency"`
	Category      *string              `json:"category,omitempty"`
	CostCenter    *string              `json:"cost_center,omitempty"`
	ApprovalChain []ApprovalChainEntry `json:"approval_chain"`
}

// ProcurementData is attached when an approved item is ordered.
type ProcurementData struct {
	PONumber    string     `json:"po_number"`
	VendorID    *string    `json:"vendor_id,omitempty"`
	OrderedBy   string     `json:"ordered_by"`
	OrderedAt   time.Time  `json:"ordered_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	DeliveryRef *string    `json:"delivery_ref,omitempty"`
}

// InvoiceData is attached when a delivered item is invoiced.
type InvoiceData struct {
	InvoiceNumber string    `json:"invoice_number"`
	Amount        int64     `json:"amount"` // cents
	Currency      string    `json:"currency"`
	ReceivedAt    time.Time `json:"received_at"`
	RecordedBy    string    `json:"recorded_by"`
}

// PaymentData is attached when an invoiced item is paid, closing it.
type PaymentData struct {
	Amount    int64     `json:"amount"` // cents
	Method    *string   `json:"method,omitempty"`
	Reference *string   `json:"reference,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
	PaidBy    string    `json:"paid_by"`
}

// RACIAssignment attaches a Responsible/Accountable/Consulted/Informed
// marker to a user, orthogonal to the approval chain.
type RACIAssignment struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"` // R | A | C | I
}

// WorkItem is the unit of work flowing through the approval pipeline.
// Version backs optimistic concurrency at the store layer: updates carry
// the version they were read at and fail on mismatch.
type WorkItem struct {
	ID          string           `json:"id"`
	Type        WorkItemType     `json:"type"`
	Status      Status           `json:"status"`
	Priority    Priority         `json:"priority"`
	Title       string           `json:"title"`
	Amount      int64            `json:"amount"` // cents
	Currency    string           `json:"currency"`
	ProjectID   string           `json:"project_id"`
	SiteID      *string          `json:"site_id,omitempty"`
	CreatedBy   string           `json:"created_by"`
	Timeline    []TimelineEvent  `json:"timeline"`
	RequestData *RequestData     `json:"request_data,omitempty"`
	Procurement *ProcurementData `json:"procurement,omitempty"`
	Invoice     *InvoiceData     `json:"invoice,omitempty"`
	Payment     *PaymentData     `json:"payment,omitempty"`
	RACI        []RACIAssignment `json:"raci,omitempty"`
	Version     int64            `json:"version"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Chain returns the item's approval chain, or nil when none was generated.
func (w *WorkItem) Chain() []ApprovalChainEntry {
	if w.RequestData == nil {
		return nil
	}
	return w.RequestData.ApprovalChain
}

// AppendEvent appends one event to the timeline. The timeline is the only
// WorkItem field that grows; it is never rewritten in place.
func (w *WorkItem) AppendEvent(ev TimelineEvent) {
	w.Timeline = append(w.Timeline, ev)
}

// Clone returns a deep copy. The engine mutates a clone and returns it, so
// a failed decision leaves the caller's item untouched.
func (w *WorkItem) Clone() *WorkItem {
	out := *w

	out.Timeline = make([]TimelineEvent, len(w.Timeline))
	copy(out.Timeline, w.Timeline)

	if w.SiteID != nil {
		v := *w.SiteID
		out.SiteID = &v
	}
	if w.RequestData != nil {
		rd := *w.RequestData
		rd.ApprovalChain = make([]ApprovalChainEntry, len(w.RequestData.ApprovalChain))
		copy(rd.ApprovalChain, w.RequestData.ApprovalChain)
		if w.RequestData.Category != nil {
			v := *w.RequestData.Category
			rd.Category = &v
		}
		if w.RequestData.CostCenter != nil {
			v := *w.RequestData.CostCenter
			rd.CostCenter = &v
		}
		out.RequestData = &rd
	}
	if w.Procurement != nil {
		p := *w.Procurement
		out.Procurement = &p
	}
	if w.Invoice != nil {
		inv := *w.Invoice
		out.Invoice = &inv
	}
	if w.Payment != nil {
		p := *w.Payment
		out.Payment = &p
	}
	if w.RACI != nil {
		out.RACI = make([]RACIAssignment, len(w.RACI))
		copy(out.RACI, w.RACI)
	}
	return &out
}
