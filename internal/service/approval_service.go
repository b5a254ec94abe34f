package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/buildcore-ai/be-ops-approvals/internal/client"
	"github.com/buildcore-ai/be-ops-approvals/internal/errors"
	"github.com/buildcore-ai/be-ops-approvals/internal/workflow"
)

// ApprovalService orchestrates the multi-level approval workflow: matching
// a definition at submission, generating the chain, routing decisions
// through the engine, and keeping the audit log and notifications in step.
type ApprovalService struct {
	items     WorkItemStore
	defs      DefinitionStore
	audit     AuditStore
	engine    *workflow.Engine
	publisher *client.NotificationPublisher
	log       zerolog.Logger

	// Purchase requests at or above this amount (cents) get the two-step
	// fallback chain when no definition matches.
	escalationThreshold int64
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(
	items WorkItemStore,
	defs DefinitionStore,
	audit AuditStore,
	engine *workflow.Engine,
	publisher *client.NotificationPublisher,
	escalationThreshold int64,
	log zerolog.Logger,
) *ApprovalService {
	return &ApprovalService{
		items:               items,
		defs:                defs,
		audit:               audit,
		engine:              engine,
		publisher:           publisher,
		escalationThreshold: escalationThreshold,
		log:                 log,
	}
}

// ── Submission ────────────────────────────────────────────────────────────────

// Submit moves a work item from DRAFT or NEED_INFO into SUBMITTED.
//
// On first submission the active workflow definitions are matched against
// the request payload and the winning definition's chain is generated onto
// the item; when nothing matches the default fallback chain is used. A
// resubmission after NEED_INFO resumes the existing chain: entries persist
// and the active step stays where it was.
func (s *ApprovalService) Submit(ctx context.Context, workItemID string, actor workflow.Actor, notes *string) (*workflow.WorkItem, error) {
	item, err := s.items.Get(ctx, workItemID)
	if err != nil {
		return nil, err
	}

	statusBefore := item.Status
	if !workflow.CanTransition(statusBefore, workflow.StatusSubmitted) {
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"cannot submit a work item in status %s", statusBefore)
	}

	item = item.Clone()
	if item.RequestData == nil {
		item.RequestData = &workflow.RequestData{
			Amount:   item.Amount,
			Currency: item.Currency,
		}
	}

	// Generate the chain only once. A decided chain must never be
	// regenerated: that would discard decision history.
	if len(item.RequestData.ApprovalChain) == 0 {
		chain, err := s.resolveChain(ctx, item)
		if err != nil {
			return nil, err
		}
		item.RequestData.ApprovalChain = chain
	}

	submitted := workflow.StatusSubmitted
	item.Status = submitted
	item.AppendEvent(workflow.TimelineEvent{
		ID:           s.engine.NewID(),
		Type:         workflow.EventSubmitted,
		ActorID:      actor.ID,
		At:           s.engine.Now(),
		StatusBefore: &statusBefore,
		StatusAfter:  &submitted,
		Note:         notes,
	})

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, &workflow.AuditEntry{
		WorkItemID:   item.ID,
		ProjectID:    item.ProjectID,
		Action:       workflow.AuditSubmitted,
		PerformedBy:  actor.ID,
		StatusBefore: &statusBefore,
		StatusAfter:  &submitted,
		Metadata:     map[string]any{"chain_steps": len(item.RequestData.ApprovalChain)},
	})
	s.publish(ctx, client.EventWorkItemSubmitted, item, actor)

	s.log.Info().
		Str("work_item_id", item.ID).
		Int("chain_steps", len(item.RequestData.ApprovalChain)).
		Msg("Work item submitted for approval")

	return item, nil
}

// resolveChain matches a definition for the item and generates its chain,
// falling back to the default chain when no definition matches.
func (s *ApprovalService) resolveChain(ctx context.Context, item *workflow.WorkItem) ([]workflow.ApprovalChainEntry, error) {
	defs, err := s.defs.List(ctx, true)
	if err != nil {
		return nil, err
	}

	payload := workflow.Payload{
		"amount":   item.Amount,
		"currency": item.Currency,
		"priority": string(item.Priority),
		"project":  item.ProjectID,
	}
	if item.RequestData.Category != nil {
		payload["category"] = *item.RequestData.Category
	}
	if item.RequestData.CostCenter != nil {
		payload["cost_center"] = *item.RequestData.CostCenter
	}

	def, err := workflow.Match(defs, item.Type, payload)
	if err != nil {
		return nil, err
	}
	if def == nil {
		s.log.Debug().
			Str("work_item_id", item.ID).
			Str("type", string(item.Type)).
			Msg("No workflow definition matched; using default chain")
		return workflow.DefaultChain(item.Type, item.Amount, s.escalationThreshold), nil
	}
	if len(def.Steps) == 0 {
		return nil, errors.Newf(errors.ErrCodeValidation,
			"workflow definition %s has no steps", def.ID)
	}

	s.log.Info().
		Str("work_item_id", item.ID).
		Str("definition_id", def.ID).
		Str("definition", def.Name).
		Msg("Workflow definition matched")
	return workflow.GenerateChain(def), nil
}

// ── Decisions ────────────────────────────────────────────────────────────────

// Decide applies one approval decision to a work item's active chain step
// and persists the result. The store's version guard turns two approvers
// racing on the same step into a CONFLICT for the loser.
func (s *ApprovalService) Decide(ctx context.Context, workItemID string, req workflow.DecisionRequest, actor workflow.Actor) (*workflow.WorkItem, error) {
	item, err := s.items.Get(ctx, workItemID)
	if err != nil {
		return nil, err
	}
	statusBefore := item.Status

	updated, err := s.engine.Decide(item, req, actor)
	if err != nil {
		return nil, err
	}
	if err := s.items.Update(ctx, updated); err != nil {
		return nil, err
	}

	action, event := decisionOutcome(req.Decision)
	s.appendAudit(ctx, &workflow.AuditEntry{
		WorkItemID:   updated.ID,
		ProjectID:    updated.ProjectID,
		Action:       action,
		PerformedBy:  actor.ID,
		StatusBefore: &statusBefore,
		StatusAfter:  &updated.Status,
		Metadata:     map[string]any{"step_no": req.ExpectedStep},
	})
	s.publish(ctx, event, updated, actor)

	s.log.Info().
		Str("work_item_id", updated.ID).
		Str("decision", string(req.Decision)).
		Int("step_no", req.ExpectedStep).
		Str("status", string(updated.Status)).
		Msg("Approval decision applied")

	return updated, nil
}

// ── Cancellation ─────────────────────────────────────────────────────────────

// Cancel recalls a work item to CANCELLED. Only the creator may cancel,
// except for OWNER/ADMIN override, and only where the transition table
// allows cancellation from the current status.
func (s *ApprovalService) Cancel(ctx context.Context, workItemID string, actor workflow.Actor, reason *string) (*workflow.WorkItem, error) {
	item, err := s.items.Get(ctx, workItemID)
	if err != nil {
		return nil, err
	}

	if item.CreatedBy != actor.ID && !actor.Role.IsOverride() {
		return nil, errors.New(errors.ErrCodeUnauthorized,
			"only the creator can cancel a work item")
	}
	statusBefore := item.Status
	if !workflow.CanTransition(statusBefore, workflow.StatusCancelled) {
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"cannot cancel a work item in status %s", statusBefore)
	}

	item = item.Clone()
	cancelled := workflow.StatusCancelled
	item.Status = cancelled
	item.AppendEvent(workflow.TimelineEvent{
		ID:           s.engine.NewID(),
		Type:         workflow.EventStatusChange,
		ActorID:      actor.ID,
		At:           s.engine.Now(),
		StatusBefore: &statusBefore,
		StatusAfter:  &cancelled,
		Note:         reason,
	})

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, &workflow.AuditEntry{
		WorkItemID:   item.ID,
		ProjectID:    item.ProjectID,
		Action:       workflow.AuditCancelled,
		PerformedBy:  actor.ID,
		StatusBefore: &statusBefore,
		StatusAfter:  &cancelled,
	})
	s.publish(ctx, client.EventWorkItemCancelled, item, actor)

	return item, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

// PendingFor returns work items whose active chain step awaits the actor's
// role and whose status permits the actor to act.
func (s *ApprovalService) PendingFor(ctx context.Context, actor workflow.Actor) ([]*workflow.WorkItem, error) {
	items, _, err := s.items.List(ctx, WorkItemFilter{})
	if err != nil {
		return nil, err
	}

	pending := []*workflow.WorkItem{}
	for _, item := range items {
		if !workflow.RoleCanAct(actor.Role, item.Status) {
			continue
		}
		active, _ := workflow.ActiveStep(item.Chain())
		if active == nil {
			continue
		}
		if active.RoleRequired == actor.Role || actor.Role.IsOverride() {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

// History returns the full audit trail for a work item.
func (s *ApprovalService) History(ctx context.Context, workItemID string) ([]*workflow.AuditEntry, error) {
	return s.audit.ListByWorkItem(ctx, workItemID)
}

// ── Internal helpers ─────────────────────────────────────────────────────────

func decisionOutcome(d workflow.Decision) (auditAction, eventType string) {
	switch d {
	case workflow.DecisionApprove:
		return workflow.AuditApproved, client.EventWorkItemApproved
	case workflow.DecisionReject:
		return workflow.AuditRejected, client.EventWorkItemRejected
	default:
		return workflow.AuditInfoRequested, client.EventInfoRequested
	}
}

// appendAudit writes an audit entry and logs a warning on failure; the
// audit write never interrupts the approval operation itself.
func (s *ApprovalService) appendAudit(ctx context.Context, entry *workflow.AuditEntry) {
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("work_item_id", entry.WorkItemID).
			Str("action", entry.Action).
			Msg("Failed to write audit log entry")
	}
}

func (s *ApprovalService) publish(ctx context.Context, eventType string, item *workflow.WorkItem, actor workflow.Actor) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishWorkItemEvent(ctx, eventType, item.ID, item.ProjectID, actor.ID, map[string]any{
		"status": string(item.Status),
		"type":   string(item.Type),
	})
}
