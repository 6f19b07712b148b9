package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskpoint/backend/internal/middleware"
	"github.com/taskpoint/backend/internal/models"
	"github.com/taskpoint/backend/internal/repository"
	"github.com/taskpoint/backend/internal/services"
)

// TaskStore is the subset of the task repository needed by the handler.
type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context) ([]*models.Task, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]*models.Task, error)
	ListByParticipant(ctx context.Context, participantID int64) ([]*models.Task, error)
}

// Lifecycle abstracts the task state transitions.
type Lifecycle interface {
	Accept(ctx context.Context, taskID uuid.UUID, applicantID, actorID int64) error
	Reject(ctx context.Context, taskID uuid.UUID, applicantID, actorID int64) error
	RequestCompletion(ctx context.Context, taskID uuid.UUID, actorID int64) error
	DisagreeCompletion(ctx context.Context, taskID uuid.UUID, actorID int64, reason string) error
	Cancel(ctx context.Context, taskID uuid.UUID, actorID int64) error
}

// Settler abstracts escrow settlement.
type Settler interface {
	ConfirmCompletion(ctx context.Context, taskID uuid.UUID, actorID int64, preview bool) (*services.Settlement, error)
}

// DisputeOpener abstracts the dispute operations.
type DisputeOpener interface {
	Open(ctx context.Context, taskID uuid.UUID, actorID int64, reason, description string) (*models.Dispute, error)
	Resolve(ctx context.Context, disputeID uuid.UUID, actorID int64) error
}

// Rater abstracts post-completion ratings.
type Rater interface {
	RateTask(ctx context.Context, taskID uuid.UUID, raterID int64, score int, comment string) (*models.TaskRating, error)
}

// TaskHandler serves the /v1/tasks endpoints.
type TaskHandler struct {
	Tasks      TaskStore
	Lifecycle  Lifecycle
	Settlement Settler
	Disputes   DisputeOpener
	Ratings    Rater
	Logger     *slog.Logger
}

// --- POST /v1/tasks ---

type createTaskRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	RewardPoints int    `json:"reward_points"`
}

// CreateTask handles POST /v1/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.UserIDFromCtx(r.Context())
	if actorID == 0 {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	title := services.SanitizeText(req.Title, services.ReasonMaxLen)
	if title == "" {
		http.Error(w, `{"error":"title is required"}`, http.StatusBadRequest)
		return
	}
	if req.RewardPoints <= 0 {
		http.Error(w, `{"error":"reward_points must be > 0"}`, http.StatusBadRequest)
		return
	}

	task := &models.Task{
		ID:           uuid.New(),
		CreatorID:    actorID,
		Title:        title,
		Description:  services.SanitizeText(req.Description, services.DescriptionMaxLen),
		RewardPoints: req.RewardPoints,
		Status:       models.TaskStatusOpen,
	}
	if err := h.Tasks.Create(r.Context(), task); err != nil {
		h.Logger.Error("create task", "error", err)
		http.Error(w, `{"error":"failed to create task"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// --- GET /v1/tasks ---

// ListTasks handles GET /v1/tasks. ?scope=created|assigned narrows the list
// to the caller's own tasks; the default is the public listing.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.UserIDFromCtx(r.Context())

	var (
		tasks []*models.Task
		err   error
	)
	switch r.URL.Query().Get("scope") {
	case "created":
		tasks, err = h.Tasks.ListByCreator(r.Context(), actorID)
	case "assigned":
		tasks, err = h.Tasks.ListByParticipant(r.Context(), actorID)
	default:
		tasks, err = h.Tasks.List(r.Context())
	}
	if err != nil {
		h.Logger.Error("list tasks", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// --- GET /v1/tasks/{id} ---

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	task, err := h.Tasks.GetByID(r.Context(), taskID)
	if err != nil {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- lifecycle verbs ---

type acceptRequest struct {
	ApplicantID int64 `json:"applicant_id"`
}

// AcceptApplication handles POST /v1/tasks/{id}/accept.
func (h *TaskHandler) AcceptApplication(w http.ResponseWriter, r *http.Request) {
	h.applicantVerb(w, r, h.Lifecycle.Accept)
}

// RejectApplication handles POST /v1/tasks/{id}/reject.
func (h *TaskHandler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	h.applicantVerb(w, r, h.Lifecycle.Reject)
}

func (h *TaskHandler) applicantVerb(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, int64, int64) error) {
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.ApplicantID == 0 {
		http.Error(w, `{"error":"applicant_id is required"}`, http.StatusBadRequest)
		return
	}

	actorID := middleware.UserIDFromCtx(r.Context())
	if err := op(r.Context(), taskID, req.ApplicantID, actorID); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID.String()})
}

// RequestCompletion handles POST /v1/tasks/{id}/request-completion.
func (h *TaskHandler) RequestCompletion(w http.ResponseWriter, r *http.Request) {
	h.simpleVerb(w, r, h.Lifecycle.RequestCompletion)
}

// CancelTask handles POST /v1/tasks/{id}/cancel.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	h.simpleVerb(w, r, h.Lifecycle.Cancel)
}

func (h *TaskHandler) simpleVerb(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, int64) error) {
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	actorID := middleware.UserIDFromCtx(r.Context())
	if err := op(r.Context(), taskID, actorID); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID.String()})
}

type disagreeRequest struct {
	Reason string `json:"reason"`
}

// DisagreeCompletion handles POST /v1/tasks/{id}/disagree.
func (h *TaskHandler) DisagreeCompletion(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req disagreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	actorID := middleware.UserIDFromCtx(r.Context())
	if err := h.Lifecycle.DisagreeCompletion(r.Context(), taskID, actorID, req.Reason); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID.String(), "status": models.TaskStatusInProgress})
}

// --- POST /v1/tasks/{id}/confirm ---

// ConfirmCompletion handles POST /v1/tasks/{id}/confirm. With ?preview=true
// it returns the settlement numbers without moving any points.
func (h *TaskHandler) ConfirmCompletion(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	preview := r.URL.Query().Get("preview") == "true"

	actorID := middleware.UserIDFromCtx(r.Context())
	settlement, err := h.Settlement.ConfirmCompletion(r.Context(), taskID, actorID, preview)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}

// --- disputes ---

type disputeRequest struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

// OpenDispute handles POST /v1/tasks/{id}/dispute.
func (h *TaskHandler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req disputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	actorID := middleware.UserIDFromCtx(r.Context())
	d, err := h.Disputes.Open(r.Context(), taskID, actorID, req.Reason, req.Description)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// ResolveDispute handles POST /v1/disputes/{id}/resolve.
func (h *TaskHandler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid dispute id"}`, http.StatusBadRequest)
		return
	}

	actorID := middleware.UserIDFromCtx(r.Context())
	if err := h.Disputes.Resolve(r.Context(), disputeID, actorID); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"dispute_id": disputeID.String(), "status": models.DisputeStatusResolved})
}

// --- ratings ---

type ratingRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// RateTask handles POST /v1/tasks/{id}/rating.
func (h *TaskHandler) RateTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	actorID := middleware.UserIDFromCtx(r.Context())
	rating, err := h.Ratings.RateTask(r.Context(), taskID, actorID, req.Score, req.Comment)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}

// --- helpers ---

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		valErr *services.ValidationError
		iseErr *services.InvalidStateError
	)
	switch {
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": valErr.Reason})
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	case errors.Is(err, services.ErrForbidden):
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	case errors.Is(err, services.ErrInsufficientFunds):
		http.Error(w, `{"error":"insufficient funds"}`, http.StatusPaymentRequired)
	case errors.Is(err, services.ErrDisputeAlreadyOpen):
		http.Error(w, `{"error":"dispute already open"}`, http.StatusConflict)
	case errors.Is(err, repository.ErrApplicationClosed):
		http.Error(w, `{"error":"application already decided"}`, http.StatusConflict)
	case errors.Is(err, repository.ErrDuplicateRating):
		http.Error(w, `{"error":"task already rated"}`, http.StatusConflict)
	case errors.As(err, &iseErr):
		writeJSON(w, http.StatusConflict, map[string]string{"error": iseErr.Error(), "status": iseErr.Current})
	default:
		logger.Error("task operation failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

// pathUUID parses a UUID path segment registered as {name} on the mux.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
