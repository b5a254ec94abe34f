package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/buildcore-ai/be-ops-approvals/internal/errors"
	"github.com/buildcore-ai/be-ops-approvals/internal/workflow"
)

// WorkItemService handles work item business logic: creation, queries, and
// the post-approval procurement progression (order → deliver → invoice →
// payment → closed).
type WorkItemService struct {
	items    WorkItemStore
	audit    AuditStore
	engine   *workflow.Engine
	validate *validator.Validate
	log      zerolog.Logger
}

// NewWorkItemService creates a new work item service.
func NewWorkItemService(items WorkItemStore, audit AuditStore, engine *workflow.Engine, log zerolog.Logger) *WorkItemService {
	return &WorkItemService{
		items:    items,
		audit:    audit,
		engine:   engine,
		validate: validator.New(),
		log:      log,
	}
}

// CreateWorkItemRequest represents a create work item request.
type CreateWorkItemRequest struct {
	Type       workflow.WorkItemType `json:"type" validate:"required"`
	Title      string                `json:"title" validate:"required"`
	Priority   workflow.Priority     `json:"priority"`
	Amount     int64                 `json:"amount" validate:"gte=0"` // cents
	Currency   string                `json:"currency" validate:"required,len=3"`
	ProjectID  string                `json:"project_id" validate:"required"`
	SiteID     *string               `json:"site_id"`
	Category   *string               `json:"category"`
	CostCenter *string               `json:"cost_center"`
}

// MarkOrderedRequest attaches procurement data to a finally-approved item.
type MarkOrderedRequest struct {
	WorkItemID string  `json:"work_item_id" validate:"required"`
	PONumber   string  `json:"po_number" validate:"required"`
	VendorID   *string `json:"vendor_id"`
}

// AttachInvoiceRequest records the vendor invoice for a delivered item.
type AttachInvoiceRequest struct {
	WorkItemID    string `json:"work_item_id" validate:"required"`
	InvoiceNumber string `json:"invoice_number" validate:"required"`
	Amount        int64  `json:"amount" validate:"gt=0"` // cents
	Currency      string `json:"currency" validate:"required,len=3"`
}

// RecordPaymentRequest records payment for an invoiced item, closing it.
type RecordPaymentRequest struct {
	WorkItemID string  `json:"work_item_id" validate:"required"`
	Amount     int64   `json:"amount" validate:"gt=0"` // cents
	Method     *string `json:"method"`
	Reference  *string `json:"reference"`
}

// Create builds a new work item in DRAFT.
func (s *WorkItemService) Create(ctx context.Context, req *CreateWorkItemRequest, actor workflow.Actor) (*workflow.WorkItem, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid create request")
	}
	if !workflow.ValidWorkItemType(req.Type) {
		return nil, errors.InvalidInput("type", "unknown work item type")
	}
	if req.Priority == "" {
		req.Priority = workflow.PriorityMedium
	}

	now := s.engine.Now()
	draft := workflow.StatusDraft
	item := &workflow.WorkItem{
		ID:        s.engine.NewID(),
		Type:      req.Type,
		Status:    draft,
		Priority:  req.Priority,
		Title:     req.Title,
		Amount:    req.Amount,
		Currency:  strings.ToUpper(req.Currency),
		ProjectID: req.ProjectID,
		SiteID:    req.SiteID,
		CreatedBy: actor.ID,
		RequestData: &workflow.RequestData{
			Amount:     req.Amount,
			Currency:   strings.ToUpper(req.Currency),
			Category:   req.Category,
			CostCenter: req.CostCenter,
		},
		Timeline: []workflow.TimelineEvent{{
			ID:          s.engine.NewID(),
			Type:        workflow.EventCreated,
			ActorID:     actor.ID,
			At:          now,
			StatusAfter: &draft,
		}},
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("work_item_id", item.ID).
		Str("type", string(item.Type)).
		Str("project_id", item.ProjectID).
		Msg("Work item created")

	return item, nil
}

// Get returns one work item by id.
func (s *WorkItemService) Get(ctx context.Context, id string) (*workflow.WorkItem, error) {
	return s.items.Get(ctx, id)
}

// List returns work items matching the filter plus the total count.
func (s *WorkItemService) List(ctx context.Context, filter WorkItemFilter) ([]*workflow.WorkItem, int, error) {
	return s.items.List(ctx, filter)
}

// MarkOrdered attaches procurement data and moves the item to ORDERED.
func (s *WorkItemService) MarkOrdered(ctx context.Context, req *MarkOrderedRequest, actor workflow.Actor) (*workflow.WorkItem, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid order request")
	}
	return s.progress(ctx, req.WorkItemID, workflow.StatusOrdered, actor, nil, func(item *workflow.WorkItem) error {
		item.Procurement = &workflow.ProcurementData{
			PONumber:  req.PONumber,
			VendorID:  req.VendorID,
			OrderedBy: actor.ID,
			OrderedAt: s.engine.Now(),
		}
		return nil
	})
}

// MarkDelivered records delivery and moves the item to DELIVERED.
func (s *WorkItemService) MarkDelivered(ctx context.Context, workItemID string, deliveryRef *string, actor workflow.Actor) (*workflow.WorkItem, error) {
	return s.progress(ctx, workItemID, workflow.StatusDelivered, actor, nil, func(item *workflow.WorkItem) error {
		if item.Procurement == nil {
			return errors.Newf(errors.ErrCodeValidation,
				"work item %s has no procurement data", item.ID)
		}
		now := s.engine.Now()
		item.Procurement.DeliveredAt = &now
		item.Procurement.DeliveryRef = deliveryRef
		return nil
	})
}

// AttachInvoice records the vendor invoice and moves the item to INVOICED.
func (s *WorkItemService) AttachInvoice(ctx context.Context, req *AttachInvoiceRequest, actor workflow.Actor) (*workflow.WorkItem, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid invoice request")
	}
	return s.progress(ctx, req.WorkItemID, workflow.StatusInvoiced, actor, nil, func(item *workflow.WorkItem) error {
		item.Invoice = &workflow.InvoiceData{
			InvoiceNumber: req.InvoiceNumber,
			Amount:        req.Amount,
			Currency:      strings.ToUpper(req.Currency),
			ReceivedAt:    s.engine.Now(),
			RecordedBy:    actor.ID,
		}
		return nil
	})
}

// RecordPayment records payment and closes the item.
func (s *WorkItemService) RecordPayment(ctx context.Context, req *RecordPaymentRequest, actor workflow.Actor) (*workflow.WorkItem, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid payment request")
	}
	return s.progress(ctx, req.WorkItemID, workflow.StatusClosed, actor, nil, func(item *workflow.WorkItem) error {
		if item.Invoice == nil {
			return errors.Newf(errors.ErrCodeValidation,
				"work item %s has no invoice to pay", item.ID)
		}
		item.Payment = &workflow.PaymentData{
			Amount:    req.Amount,
			Method:    req.Method,
			Reference: req.Reference,
			PaidAt:    s.engine.Now(),
			PaidBy:    actor.ID,
		}
		return nil
	})
}

// AssignRACI replaces the item's RACI assignment list.
func (s *WorkItemService) AssignRACI(ctx context.Context, workItemID string, assignments []workflow.RACIAssignment, actor workflow.Actor) (*workflow.WorkItem, error) {
	for _, a := range assignments {
		switch a.Kind {
		case "R", "A", "C", "I":
		default:
			return nil, errors.InvalidInput("kind", "RACI kind must be R, A, C or I")
		}
		if a.UserID == "" {
			return nil, errors.InvalidInput("user_id", "RACI assignment requires a user id")
		}
	}

	item, err := s.items.Get(ctx, workItemID)
	if err != nil {
		return nil, err
	}
	item = item.Clone()
	item.RACI = assignments
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// progress applies one post-approval pipeline transition, validating it
// against the transition table, running mutate on a clone, and appending a
// STATUS_CHANGE timeline event. On any error nothing is persisted.
func (s *WorkItemService) progress(
	ctx context.Context,
	workItemID string,
	target workflow.Status,
	actor workflow.Actor,
	note *string,
	mutate func(item *workflow.WorkItem) error,
) (*workflow.WorkItem, error) {
	item, err := s.items.Get(ctx, workItemID)
	if err != nil {
		return nil, err
	}

	statusBefore := item.Status
	if !workflow.CanTransition(statusBefore, target) {
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"cannot move work item from %s to %s", statusBefore, target)
	}

	item = item.Clone()
	if mutate != nil {
		if err := mutate(item); err != nil {
			return nil, err
		}
	}
	item.Status = target
	item.AppendEvent(workflow.TimelineEvent{
		ID:           s.engine.NewID(),
		Type:         workflow.EventStatusChange,
		ActorID:      actor.ID,
		At:           s.engine.Now(),
		StatusBefore: &statusBefore,
		StatusAfter:  &target,
		Note:         note,
	})

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	if err := s.audit.Append(ctx, &workflow.AuditEntry{
		WorkItemID:   item.ID,
		ProjectID:    item.ProjectID,
		Action:       workflow.AuditStatusChanged,
		PerformedBy:  actor.ID,
		StatusBefore: &statusBefore,
		StatusAfter:  &target,
	}); err != nil {
		s.log.Warn().Err(err).
			Str("work_item_id", item.ID).
			Msg("Failed to write audit log entry")
	}

	s.log.Info().
		Str("work_item_id", item.ID).
		Str("from", string(statusBefore)).
		Str("to", string(target)).
		Msg("Work item status changed")

	return item, nil
}
