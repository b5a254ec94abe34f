package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/buildcore-ai/be-ops-approvals/internal/errors"
	"github.com/buildcore-ai/be-ops-approvals/internal/service"
	"github.com/buildcore-ai/be-ops-approvals/internal/workflow"
)

// HTTPHandler handles HTTP requests for work items, approvals and the
// workflow studio.
type HTTPHandler struct {
	workItems *service.WorkItemService
	approvals *service.ApprovalService
	studio    *service.StudioService
	log       zerolog.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	workItems *service.WorkItemService,
	approvals *service.ApprovalService,
	studio *service.StudioService,
	log zerolog.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		workItems: workItems,
		approvals: approvals,
		studio:    studio,
		log:       log,
	}
}

// actorFrom reads the acting user from request headers.
// TODO: derive the actor from the platform identity service's JWT once the
// gateway propagates it; the headers are what the gateway forwards today.
func actorFrom(r *http.Request) (workflow.Actor, error) {
	id := r.Header.Get("X-Actor-Id")
	role := r.Header.Get("X-Actor-Role")
	if id == "" || role == "" {
		return workflow.Actor{}, errors.New(errors.ErrCodeUnauthorized,
			"missing X-Actor-Id or X-Actor-Role header")
	}
	return workflow.Actor{ID: id, Role: workflow.Role(role)}, nil
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, errors.HTTPStatus(err), map[string]string{
		"code":  string(errors.CodeOf(err)),
		"error": err.Error(),
	})
}

// ── work items ───────────────────────────────────────────────────────────────

// CreateWorkItem handles POST /api/v1/work-items.
func (h *HTTPHandler) CreateWorkItem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req service.CreateWorkItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}

	item, err := h.workItems.Create(r.Context(), &req, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, item)
}

// GetWorkItem handles GET /api/v1/work-items/get?id=.
func (h *HTTPHandler) GetWorkItem(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, errors.InvalidInput("id", "work item id is required"))
		return
	}

	item, err := h.workItems.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// ListWorkItems handles GET /api/v1/work-items.
func (h *HTTPHandler) ListWorkItems(w http.ResponseWriter, r *http.Request) {
	filter := service.WorkItemFilter{}
	q := r.URL.Query()

	if v := q.Get("project_id"); v != "" {
		filter.ProjectID = &v
	}
	if v := q.Get("status"); v != "" {
		status := workflow.Status(v)
		filter.Status = &status
	}
	if v := q.Get("type"); v != "" {
		t := workflow.WorkItemType(v)
		filter.Type = &t
	}
	if v := q.Get("created_by"); v != "" {
		filter.CreatedBy = &v
	}

	filter.Page, _ = strconv.Atoi(q.Get("page"))
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 50
	}

	items, total, err := h.workItems.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"work_items": items,
		"total":      total,
		"page":       filter.Page,
		"page_size":  filter.PageSize,
	})
}

// ── approval workflow ────────────────────────────────────────────────────────

// SubmitWorkItem handles POST /api/v1/work-items/submit.
func (h *HTTPHandler) SubmitWorkItem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		ID    string  `json:"id"`
		Notes *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}

	item, err := h.approvals.Submit(r.Context(), req.ID, actor, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// DecideWorkItem handles POST /api/v1/work-items/decide.
func (h *HTTPHandler) DecideWorkItem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		ID           string  `json:"id"`
		Decision     string  `json:"decision"`
		ExpectedStep int     `json:"expected_step"`
		Note         *string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}

	item, err := h.approvals.Decide(r.Context(), req.ID, workflow.DecisionRequest{
		Decision:     workflow.Decision(req.Decision),
		ExpectedStep: req.ExpectedStep,
		Note:         req.Note,
	}, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// CancelWorkItem handles POST /api/v1/work-items/cancel.
func (h *HTTPHandler) CancelWorkItem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		ID     string  `json:"id"`
		Reason *string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}

	item, err := h.approvals.Cancel(r.Context(), req.ID, actor, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// PendingApprovals handles GET /api/v1/approvals/pending.
func (h *HTTPHandler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	items, err := h.approvals.PendingFor(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"work_items": items})
}

// ApprovalHistory handles GET /api/v1/approvals/history?id=.
func (h *HTTPHandler) ApprovalHistory(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, errors.InvalidInput("id", "work item id is required"))
		return
	}

	entries, err := h.approvals.History(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// ── procurement progression ──────────────────────────────────────────────────

// OrderWorkItem handles POST /api/v1/work-items/order.
func (h *HTTPHandler) OrderWorkItem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req service.MarkOrderedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}

	item, err := h.workItems.MarkOrdered(r.Context(), &req, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// DeliverWorkItem handles POST /api/v1/work-items/deliver.
func (h *HTTPHandler) DeliverWorkItem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		ID          string  `json:"id"`
		DeliveryRef *string `json:"delivery_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}

	item, err := h.workItems.MarkDelivered(r.Context(), req.ID, req.DeliveryRef, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// InvoiceWorkItem handles POST /api/v1/work-items/invoice.
func (h *HTTPHandler) InvoiceWorkItem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req service.AttachInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}

	item, err := h.workItems.AttachInvoice(r.Context(), &req, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// PayWorkItem handles POST /api/v1/work-items/payment.
func (h *HTTPHandler) PayWorkItem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req service.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}

	item, err := h.workItems.RecordPayment(r.Context(), &req, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// ── workflow studio ──────────────────────────────────────────────────────────

// SaveWorkflow handles POST /api/v1/workflows.
func (h *HTTPHandler) SaveWorkflow(w http.ResponseWriter, r *http.Request) {
	if _, err := actorFrom(r); err != nil {
		h.writeError(w, err)
		return
	}

	var def workflow.WorkflowDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		h.writeError(w, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}

	saved, err := h.studio.Save(r.Context(), &def)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, saved)
}

// ListWorkflows handles GET /api/v1/workflows.
func (h *HTTPHandler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	defs, err := h.studio.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"workflows": defs})
}

// GetWorkflow handles GET /api/v1/workflows/get?id=.
func (h *HTTPHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, errors.InvalidInput("id", "workflow definition id is required"))
		return
	}

	def, err := h.studio.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, def)
}

// ActivateWorkflow handles POST /api/v1/workflows/activate.
func (h *HTTPHandler) ActivateWorkflow(w http.ResponseWriter, r *http.Request) {
	if _, err := actorFrom(r); err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		ID     string `json:"id"`
		Active bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}

	def, err := h.studio.SetActive(r.Context(), req.ID, req.Active)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, def)
}

// DeleteWorkflowStep handles POST /api/v1/workflows/delete-step.
func (h *HTTPHandler) DeleteWorkflowStep(w http.ResponseWriter, r *http.Request) {
	if _, err := actorFrom(r); err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		ID     string `json:"id"`
		StepNo int    `json:"step_no"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}

	def, err := h.studio.DeleteStep(r.Context(), req.ID, req.StepNo)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, def)
}
