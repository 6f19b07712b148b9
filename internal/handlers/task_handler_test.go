package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/taskpoint/backend/internal/middleware"
	"github.com/taskpoint/backend/internal/models"
	"github.com/taskpoint/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubTaskStore struct {
	created *models.Task
	task    *models.Task
}

func (s *stubTaskStore) Create(_ context.Context, t *models.Task) error {
	s.created = t
	return nil
}

func (s *stubTaskStore) GetByID(_ context.Context, _ uuid.UUID) (*models.Task, error) {
	if s.task == nil {
		return nil, context.Canceled
	}
	return s.task, nil
}

func (s *stubTaskStore) List(_ context.Context) ([]*models.Task, error) { return nil, nil }
func (s *stubTaskStore) ListByCreator(_ context.Context, _ int64) ([]*models.Task, error) {
	return nil, nil
}
func (s *stubTaskStore) ListByParticipant(_ context.Context, _ int64) ([]*models.Task, error) {
	return nil, nil
}

type stubSettler struct {
	settlement *services.Settlement
	err        error

	gotPreview bool
	gotActor   int64
}

func (s *stubSettler) ConfirmCompletion(_ context.Context, _ uuid.UUID, actorID int64, preview bool) (*services.Settlement, error) {
	s.gotActor = actorID
	s.gotPreview = preview
	return s.settlement, s.err
}

type stubLifecycle struct {
	err error
}

func (s *stubLifecycle) Accept(context.Context, uuid.UUID, int64, int64) error { return s.err }
func (s *stubLifecycle) Reject(context.Context, uuid.UUID, int64, int64) error { return s.err }
func (s *stubLifecycle) RequestCompletion(context.Context, uuid.UUID, int64) error {
	return s.err
}
func (s *stubLifecycle) DisagreeCompletion(context.Context, uuid.UUID, int64, string) error {
	return s.err
}
func (s *stubLifecycle) Cancel(context.Context, uuid.UUID, int64) error { return s.err }

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// authedRequest builds a request with the actor in context and the task id
// path value set, the way the mux would.
func authedRequest(method, target string, body string, actorID int64, taskID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.SetPathValue("id", taskID.String())
	return req.WithContext(middleware.WithUserID(req.Context(), actorID))
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCreateTask(t *testing.T) {
	store := &stubTaskStore{}
	h := &TaskHandler{Tasks: store, Logger: testLogger()}

	req := authedRequest(http.MethodPost, "/v1/tasks", `{"title":"walk the dog","reward_points":100}`, 7, uuid.Nil)
	rec := httptest.NewRecorder()
	h.CreateTask(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.created == nil {
		t.Fatal("task was not stored")
	}
	if store.created.CreatorID != 7 {
		t.Errorf("creator: got %d, want 7", store.created.CreatorID)
	}
	if store.created.Status != models.TaskStatusOpen {
		t.Errorf("status: got %q, want open", store.created.Status)
	}
}

func TestCreateTask_Validation(t *testing.T) {
	h := &TaskHandler{Tasks: &stubTaskStore{}, Logger: testLogger()}

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing title", `{"reward_points":10}`},
		{"markup-only title", `{"title":"<i></i>","reward_points":10}`},
		{"zero reward", `{"title":"x","reward_points":0}`},
		{"negative reward", `{"title":"x","reward_points":-5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := authedRequest(http.MethodPost, "/v1/tasks", tc.body, 7, uuid.Nil)
			rec := httptest.NewRecorder()
			h.CreateTask(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestConfirmCompletion_Handler(t *testing.T) {
	settler := &stubSettler{settlement: &services.Settlement{Amount: 1000, Fee: 50, Net: 950}}
	h := &TaskHandler{Settlement: settler, Logger: testLogger()}
	taskID := uuid.New()

	req := authedRequest(http.MethodPost, "/v1/tasks/"+taskID.String()+"/confirm?preview=true", "", 7, taskID)
	rec := httptest.NewRecorder()
	h.ConfirmCompletion(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !settler.gotPreview {
		t.Error("preview query param was not passed through")
	}
	if settler.gotActor != 7 {
		t.Errorf("actor: got %d, want 7", settler.gotActor)
	}

	var resp services.Settlement
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Amount != 1000 || resp.Fee != 50 || resp.Net != 950 {
		t.Errorf("settlement numbers lost in transit: %+v", resp)
	}
}

func TestWriteServiceError_Mapping(t *testing.T) {
	taskID := uuid.New()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"forbidden", services.ErrForbidden, http.StatusForbidden},
		{"insufficient funds", services.ErrInsufficientFunds, http.StatusPaymentRequired},
		{"dispute open", services.ErrDisputeAlreadyOpen, http.StatusConflict},
		{"invalid state", &services.InvalidStateError{Subject: "task", Current: "open"}, http.StatusConflict},
		{"validation", &services.ValidationError{Reason: "reason is required"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			settler := &stubSettler{err: tc.err}
			h := &TaskHandler{Settlement: settler, Logger: testLogger()}

			req := authedRequest(http.MethodPost, "/v1/tasks/"+taskID.String()+"/confirm", "", 7, taskID)
			rec := httptest.NewRecorder()
			h.ConfirmCompletion(rec, req)

			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestInvalidStateResponseCarriesCurrentStatus(t *testing.T) {
	taskID := uuid.New()
	settler := &stubSettler{err: &services.InvalidStateError{Subject: "task", Current: models.TaskStatusOpen}}
	h := &TaskHandler{Settlement: settler, Logger: testLogger()}

	req := authedRequest(http.MethodPost, "/v1/tasks/"+taskID.String()+"/confirm", "", 7, taskID)
	rec := httptest.NewRecorder()
	h.ConfirmCompletion(rec, req)

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != models.TaskStatusOpen {
		t.Errorf("status field: got %q, want open", resp["status"])
	}
}

func TestAcceptApplication_Handler(t *testing.T) {
	h := &TaskHandler{Lifecycle: &stubLifecycle{}, Logger: testLogger()}
	taskID := uuid.New()

	req := authedRequest(http.MethodPost, "/v1/tasks/"+taskID.String()+"/accept", `{"applicant_id":10}`, 1, taskID)
	rec := httptest.NewRecorder()
	h.AcceptApplication(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Missing applicant_id is rejected before the service is called.
	req = authedRequest(http.MethodPost, "/v1/tasks/"+taskID.String()+"/accept", `{}`, 1, taskID)
	rec = httptest.NewRecorder()
	h.AcceptApplication(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	// Bad task id in the path.
	req = authedRequest(http.MethodPost, "/v1/tasks/nope/accept", `{"applicant_id":10}`, 1, taskID)
	req.SetPathValue("id", "nope")
	rec = httptest.NewRecorder()
	h.AcceptApplication(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad uuid, got %d", rec.Code)
	}
}
