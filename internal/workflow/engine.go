package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/buildcore-ai/be-ops-approvals/internal/errors"
)

// Decision is an approver's verdict on the active chain step.
type Decision string

const (
	DecisionApprove     Decision = "APPROVE"
	DecisionReject      Decision = "REJECT"
	DecisionRequestInfo Decision = "REQUEST_INFO"
)

// Actor identifies who is acting, supplied by the host's auth layer.
type Actor struct {
	ID   string
	Role Role
}

// DecisionRequest carries one decision against a work item's active step.
// ExpectedStep is the step number the caller observed before deciding; it
// must match the current active step or the decision is rejected as stale.
type DecisionRequest struct {
	Decision     Decision
	ExpectedStep int
	Note         *string
}

// Engine applies decisions to work items. Clock and id generation are
// injected so tests can pin timestamps and ids.
type Engine struct {
	now   func() time.Time
	newID func() string
}

// NewEngine creates an engine. Pass nil to use the real clock and uuids.
func NewEngine(now func() time.Time, newID func() string) *Engine {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Engine{now: now, newID: newID}
}

// Now returns the engine's current time. Services stamp timeline events
// outside Decide with the same injected clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// NewID returns a fresh id from the injected generator.
func (e *Engine) NewID() string {
	return e.newID()
}

// approvalLadder orders the approval-stage statuses a completed chain
// climbs through on final approval.
var approvalLadder = map[Status]Status{
	StatusSubmitted:  StatusApprovedL1,
	StatusApprovedL1: StatusApprovedL2,
	StatusApprovedL2: StatusApprovedFinal,
}

// Decide applies one decision to the item's active approval chain step and
// recomputes the item's status. It operates on a deep copy and returns it:
// on any error the input item is untouched and nothing may be persisted.
func (e *Engine) Decide(item *WorkItem, req DecisionRequest, actor Actor) (*WorkItem, error) {
	status := item.Status.Canonical()

	chain := item.Chain()
	if len(chain) == 0 {
		return nil, errors.Newf(errors.ErrCodeValidation,
			"work item %s has no approval chain", item.ID)
	}

	active, idx := ActiveStep(chain)
	if active == nil {
		return nil, errors.Newf(errors.ErrCodeConflict,
			"approval chain for work item %s is already complete", item.ID)
	}

	if req.ExpectedStep == 0 {
		return nil, errors.InvalidInput("expected_step", "expected step number is required")
	}
	if req.ExpectedStep != active.StepNo {
		return nil, errors.Newf(errors.ErrCodeStaleChain,
			"decision targeted step %d but step %d is active", req.ExpectedStep, active.StepNo)
	}

	if !RoleCanAct(actor.Role, status) {
		return nil, errors.Newf(errors.ErrCodeUnauthorized,
			"role %s may not act on items in status %s", actor.Role, status)
	}
	if actor.Role != active.RoleRequired && !actor.Role.IsOverride() {
		return nil, errors.Newf(errors.ErrCodeUnauthorized,
			"step %d requires role %s", active.StepNo, active.RoleRequired)
	}

	switch req.Decision {
	case DecisionApprove:
		return e.approve(item, status, idx, req.Note, actor)
	case DecisionReject:
		return e.reject(item, status, idx, req.Note, actor)
	case DecisionRequestInfo:
		return e.requestInfo(item, status, req.Note, actor)
	}
	return nil, errors.InvalidInput("decision", "must be APPROVE, REJECT or REQUEST_INFO")
}

// approve stamps the active entry APPROVED. Approving the last step climbs
// the item through the approval ladder to APPROVED_FINAL; earlier steps
// leave the status where it is until the next step is decided.
func (e *Engine) approve(item *WorkItem, status Status, idx int, note *string, actor Actor) (*WorkItem, error) {
	chain := item.Chain()
	entry := chain[idx]

	if entry.RequireNote && emptyNote(note) {
		return nil, errors.InvalidInput("note",
			"a note is mandatory for this approval step")
	}

	lastStep := true
	for i := idx + 1; i < len(chain); i++ {
		if chain[i].Status == DecisionPending {
			lastStep = false
			break
		}
	}

	statusAfter := status
	if lastStep {
		var err error
		statusAfter, err = climbToFinal(status)
		if err != nil {
			return nil, err
		}
	}

	now := e.now()
	out := item.Clone()
	stamped := &out.RequestData.ApprovalChain[idx]
	stamped.Status = DecisionApproved
	stamped.UserID = &actor.ID
	stamped.DecidedAt = &now
	stamped.Note = note

	out.Status = statusAfter
	out.UpdatedAt = now
	out.AppendEvent(TimelineEvent{
		ID:           e.newID(),
		Type:         EventApproval,
		ActorID:      actor.ID,
		At:           now,
		StatusBefore: &status,
		StatusAfter:  &statusAfter,
		StepNo:       &stamped.StepNo,
		Note:         note,
	})
	return out, nil
}

// reject stamps the active entry REJECTED and moves the item to the
// terminal REJECTED status. Entries after the rejected one are never
// touched; the chain is dead.
func (e *Engine) reject(item *WorkItem, status Status, idx int, note *string, actor Actor) (*WorkItem, error) {
	if emptyNote(note) {
		return nil, errors.InvalidInput("note", "a rejection note is required")
	}
	if !CanTransition(status, StatusRejected) {
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"cannot reject a work item in status %s", status)
	}

	now := e.now()
	out := item.Clone()
	stamped := &out.RequestData.ApprovalChain[idx]
	stamped.Status = DecisionRejected
	stamped.UserID = &actor.ID
	stamped.DecidedAt = &now
	stamped.Note = note

	rejected := StatusRejected
	out.Status = rejected
	out.UpdatedAt = now
	out.AppendEvent(TimelineEvent{
		ID:           e.newID(),
		Type:         EventRejection,
		ActorID:      actor.ID,
		At:           now,
		StatusBefore: &status,
		StatusAfter:  &rejected,
		StepNo:       &stamped.StepNo,
		Note:         note,
	})
	return out, nil
}

// requestInfo returns the item to its creator for clarification. The chain
// is left untouched; resubmission resumes it at the same active step.
func (e *Engine) requestInfo(item *WorkItem, status Status, note *string, actor Actor) (*WorkItem, error) {
	if !CanTransition(status, StatusNeedInfo) {
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"cannot request info on a work item in status %s", status)
	}

	now := e.now()
	out := item.Clone()
	needInfo := StatusNeedInfo
	out.Status = needInfo
	out.UpdatedAt = now
	out.AppendEvent(TimelineEvent{
		ID:           e.newID(),
		Type:         EventStatusChange,
		ActorID:      actor.ID,
		At:           now,
		StatusBefore: &status,
		StatusAfter:  &needInfo,
		Note:         note,
	})
	return out, nil
}

// climbToFinal walks the approval ladder from the current status to
// APPROVED_FINAL, validating every hop against the transition table.
func climbToFinal(s Status) (Status, error) {
	for s != StatusApprovedFinal {
		next, ok := approvalLadder[s]
		if !ok || !CanTransition(s, next) {
			return "", errors.Newf(errors.ErrCodeInvalidTransition,
				"cannot advance to final approval from status %s", s)
		}
		s = next
	}
	return s, nil
}

func emptyNote(note *string) bool {
	return note == nil || *note == ""
}
