package workflow

// Status is a work item's position in the approval and procurement pipeline.
type Status string

const (
	StatusDraft         Status = "DRAFT"
	StatusSubmitted     Status = "SUBMITTED"
	StatusNeedInfo      Status = "NEED_INFO"
	StatusRejected      Status = "REJECTED"
	StatusApprovedL1    Status = "APPROVED_L1"
	StatusApprovedL2    Status = "APPROVED_L2"
	StatusApprovedFinal Status = "APPROVED_FINAL"
	StatusOrdered       Status = "ORDERED"
	StatusDelivered     Status = "DELIVERED"
	StatusInvoiced      Status = "INVOICED"
	StatusClosed        Status = "CLOSED"
	StatusCancelled     Status = "CANCELLED"
)

// Legacy statuses still present on records written by earlier releases.
// They stay in the transition table so old records remain loadable, and
// Canonical maps them onto the current status set at load time.
const (
	StatusDone       Status = "DONE"
	StatusApproved   Status = "APPROVED"
	StatusInReview   Status = "IN_REVIEW"
	StatusInProgress Status = "IN_PROGRESS"
)

// transitions maps each status to its legal successors. Every status,
// legacy aliases included, has an entry; terminal statuses map to nil.
var transitions = map[Status][]Status{
	StatusDraft:         {StatusSubmitted, StatusCancelled},
	StatusSubmitted:     {StatusNeedInfo, StatusApprovedL1, StatusRejected},
	StatusNeedInfo:      {StatusSubmitted, StatusCancelled},
	StatusApprovedL1:    {StatusApprovedL2, StatusRejected},
	StatusApprovedL2:    {StatusApprovedFinal, StatusRejected},
	StatusApprovedFinal: {StatusOrdered, StatusCancelled},
	StatusOrdered:       {StatusDelivered, StatusCancelled},
	StatusDelivered:     {StatusInvoiced},
	StatusInvoiced:      {StatusClosed},
	StatusClosed:        nil,
	StatusCancelled:     nil,
	StatusRejected:      nil,
	StatusDone:          nil,
	StatusApproved:      {StatusClosed},
	StatusInReview:      {StatusApproved},
	StatusInProgress:    {StatusDone},
}

var terminalStatuses = map[Status]bool{
	StatusClosed:    true,
	StatusCancelled: true,
	StatusRejected:  true,
	StatusDone:      true,
}

// canonical maps legacy aliases onto the current status set.
var canonical = map[Status]Status{
	StatusDone:       StatusClosed,
	StatusApproved:   StatusApprovedFinal,
	StatusInReview:   StatusSubmitted,
	StatusInProgress: StatusOrdered,
}

// NextStatuses returns the legal successor statuses for s. Unknown or
// terminal statuses yield an empty slice, never nil-map surprises.
func NextStatuses(s Status) []Status {
	next, ok := transitions[s]
	if !ok {
		return []Status{}
	}
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from may legally move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Canonical maps legacy aliases onto the current status set. Current
// statuses pass through unchanged. Repositories call this on load so the
// rest of the system only ever sees the closed set.
func (s Status) Canonical() Status {
	if mapped, ok := canonical[s]; ok {
		return mapped
	}
	return s
}

// IsTerminal reports whether no further transitions are possible from s.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid reports whether s is a known status, legacy aliases included.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsLegacy reports whether s is a retired alias kept for old records.
func (s Status) IsLegacy() bool {
	_, ok := canonical[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// AllStatuses returns every known status, current and legacy.
func AllStatuses() []Status {
	out := make([]Status, 0, len(transitions))
	for s := range transitions {
		out = append(out, s)
	}
	return out
}
