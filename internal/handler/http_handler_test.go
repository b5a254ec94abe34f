package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildcore-ai/be-ops-approvals/internal/service"
	"github.com/buildcore-ai/be-ops-approvals/internal/store"
	"github.com/buildcore-ai/be-ops-approvals/internal/workflow"
)

func newTestHandler() *HTTPHandler {
	log := zerolog.Nop()
	items := store.NewMemoryWorkItems()
	defs := store.NewMemoryDefinitions()
	audit := store.NewMemoryAudit()
	engine := workflow.NewEngine(nil, nil)

	return NewHTTPHandler(
		service.NewWorkItemService(items, audit, engine, log),
		service.NewApprovalService(items, defs, audit, engine, nil, 5000000, log),
		service.NewStudioService(defs, log),
		log,
	)
}

func postJSON(t *testing.T, body any, actorID, actorRole string) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	if actorID != "" {
		req.Header.Set("X-Actor-Id", actorID)
		req.Header.Set("X-Actor-Role", actorRole)
	}
	return req
}

func TestCreateWorkItemEndpoint(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.CreateWorkItem(rec, postJSON(t, map[string]any{
		"type":       "PURCHASE",
		"title":      "Scaffolding rental",
		"amount":     120000,
		"currency":   "USD",
		"project_id": "proj-1",
	}, "user-1", "ENGINEER"))

	require.Equal(t, http.StatusCreated, rec.Code)

	var item workflow.WorkItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, workflow.StatusDraft, item.Status)
	assert.Equal(t, "user-1", item.CreatedBy)
}

func TestCreateWorkItemRequiresActorHeaders(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.CreateWorkItem(rec, postJSON(t, map[string]any{
		"type":       "PURCHASE",
		"title":      "x",
		"currency":   "USD",
		"project_id": "proj-1",
	}, "", ""))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestCreateWorkItemValidationErrorMapsTo422(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.CreateWorkItem(rec, postJSON(t, map[string]any{
		"type": "PURCHASE",
	}, "user-1", "ENGINEER"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetWorkItemEndpoint(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.CreateWorkItem(rec, postJSON(t, map[string]any{
		"type":       "EXPENSE",
		"title":      "Fuel",
		"amount":     5000,
		"currency":   "USD",
		"project_id": "proj-1",
	}, "user-1", "ENGINEER"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created workflow.WorkItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	h.GetWorkItem(rec, httptest.NewRequest(http.MethodGet, "/?id="+created.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.GetWorkItem(rec, httptest.NewRequest(http.MethodGet, "/?id=missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.GetWorkItem(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmitAndDecideEndpoints(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.CreateWorkItem(rec, postJSON(t, map[string]any{
		"type":       "PURCHASE",
		"title":      "Rebar",
		"amount":     60000,
		"currency":   "USD",
		"project_id": "proj-1",
	}, "user-creator", "ENGINEER"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var item workflow.WorkItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))

	rec = httptest.NewRecorder()
	h.SubmitWorkItem(rec, postJSON(t, map[string]any{"id": item.ID}, "user-creator", "ENGINEER"))
	require.Equal(t, http.StatusOK, rec.Code)

	var submitted workflow.WorkItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	assert.Equal(t, workflow.StatusSubmitted, submitted.Status)
	require.NotEmpty(t, submitted.Chain())

	// Wrong role on the active step maps to 403.
	rec = httptest.NewRecorder()
	h.DecideWorkItem(rec, postJSON(t, map[string]any{
		"id":            item.ID,
		"decision":      "APPROVE",
		"expected_step": 1,
	}, "user-acct", "ACCOUNTANT"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.DecideWorkItem(rec, postJSON(t, map[string]any{
		"id":            item.ID,
		"decision":      "APPROVE",
		"expected_step": 1,
	}, "user-mgr", "MANAGER"))
	require.Equal(t, http.StatusOK, rec.Code)

	var decided workflow.WorkItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decided))
	assert.Equal(t, workflow.StatusApprovedFinal, decided.Status)

	// The chain is exhausted; a further decision maps to 409.
	rec = httptest.NewRecorder()
	h.DecideWorkItem(rec, postJSON(t, map[string]any{
		"id":            item.ID,
		"decision":      "APPROVE",
		"expected_step": 1,
	}, "user-owner", "OWNER"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSaveWorkflowEndpoint(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.SaveWorkflow(rec, postJSON(t, map[string]any{
		"name":       "large purchases",
		"applies_to": "PURCHASE",
		"is_active":  true,
		"priority":   10,
		"steps": []map[string]any{
			{"step_no": 1, "role_required": "MANAGER"},
			{"step_no": 2, "role_required": "DIRECTOR"},
		},
		"conditions": []map[string]any{
			{"field": "amount", "op": "GT", "value": 50000},
		},
	}, "user-admin", "ADMIN"))
	require.Equal(t, http.StatusOK, rec.Code)

	var def workflow.WorkflowDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &def))
	assert.NotEmpty(t, def.ID)
	assert.Len(t, def.Steps, 2)

	rec = httptest.NewRecorder()
	h.ListWorkflows(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
