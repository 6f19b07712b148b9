package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskpoint/backend/internal/middleware"
	"github.com/taskpoint/backend/internal/models"
	"github.com/taskpoint/backend/internal/repository"
)

// Applications abstracts the application registry operations.
type Applications interface {
	Apply(ctx context.Context, taskID uuid.UUID, userID int64, coverLetter string, answers json.RawMessage) (*models.Application, error)
	Withdraw(ctx context.Context, taskID uuid.UUID, userID int64) error
	ListByTask(ctx context.Context, taskID uuid.UUID, actorID int64) ([]*repository.ApplicationWithApplicant, error)
	ListByUser(ctx context.Context, userID int64) ([]*repository.ApplicationWithTask, error)
}

// ApplicationHandler serves the application endpoints.
type ApplicationHandler struct {
	Apps   Applications
	Logger *slog.Logger
}

type applyRequest struct {
	CoverLetter string          `json:"cover_letter"`
	Answers     json.RawMessage `json:"answers"`
}

// Apply handles POST /v1/tasks/{id}/applications.
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	actorID := middleware.UserIDFromCtx(r.Context())
	a, err := h.Apps.Apply(r.Context(), taskID, actorID, req.CoverLetter, req.Answers)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Withdraw handles DELETE /v1/tasks/{id}/applications.
func (h *ApplicationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	actorID := middleware.UserIDFromCtx(r.Context())
	if err := h.Apps.Withdraw(r.Context(), taskID, actorID); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID.String(), "status": models.ApplicationStatusWithdrawn})
}

// ListByTask handles GET /v1/tasks/{id}/applications (creator only).
func (h *ApplicationHandler) ListByTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	actorID := middleware.UserIDFromCtx(r.Context())
	apps, err := h.Apps.ListByTask(r.Context(), taskID, actorID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if apps == nil {
		apps = []*repository.ApplicationWithApplicant{}
	}
	writeJSON(w, http.StatusOK, apps)
}

// ListMine handles GET /v1/applications.
func (h *ApplicationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.UserIDFromCtx(r.Context())
	apps, err := h.Apps.ListByUser(r.Context(), actorID)
	if err != nil {
		h.Logger.Error("list applications", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if apps == nil {
		apps = []*repository.ApplicationWithTask{}
	}
	writeJSON(w, http.StatusOK, apps)
}
