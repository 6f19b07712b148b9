package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskpoint/backend/internal/models"
	"github.com/taskpoint/backend/internal/repository"
)

// ApplicationTaskLookup resolves the task an application targets.
type ApplicationTaskLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

// ApplicationStore is the registry's storage surface.
type ApplicationStore interface {
	Upsert(ctx context.Context, a *models.Application) error
	Withdraw(ctx context.Context, taskID uuid.UUID, userID int64) (bool, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*repository.ApplicationWithApplicant, error)
	ListByUser(ctx context.Context, userID int64) ([]*repository.ApplicationWithTask, error)
}

// ApplicationService is the application registry: workers bidding on open
// tasks. Re-applying overwrites a prior applied/withdrawn application.
type ApplicationService struct {
	Tasks  ApplicationTaskLookup
	Apps   ApplicationStore
	Logger *slog.Logger
}

func NewApplicationService(tasks ApplicationTaskLookup, apps ApplicationStore, logger *slog.Logger) *ApplicationService {
	return &ApplicationService{Tasks: tasks, Apps: apps, Logger: logger}
}

// Apply upserts the user's application to an open task. The task creator
// cannot apply to their own task.
func (s *ApplicationService) Apply(ctx context.Context, taskID uuid.UUID, userID int64, coverLetter string, answers json.RawMessage) (*models.Application, error) {
	task, err := s.Tasks.GetByID(ctx, taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if task.CreatorID == userID {
		return nil, validationf("task creator cannot apply to their own task")
	}
	if task.Status != models.TaskStatusOpen {
		return nil, invalidTaskState(task.Status)
	}

	a := &models.Application{
		TaskID:      taskID,
		UserID:      userID,
		Status:      models.ApplicationStatusApplied,
		CoverLetter: SanitizeText(coverLetter, CoverLetterMaxLen),
		Answers:     answers,
	}
	if err := s.Apps.Upsert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Withdraw retracts an applied application.
func (s *ApplicationService) Withdraw(ctx context.Context, taskID uuid.UUID, userID int64) error {
	ok, err := s.Apps.Withdraw(ctx, taskID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// ListByTask returns the enriched applications for the creator's review.
// Only the creator may see them.
func (s *ApplicationService) ListByTask(ctx context.Context, taskID uuid.UUID, actorID int64) ([]*repository.ApplicationWithApplicant, error) {
	task, err := s.Tasks.GetByID(ctx, taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if task.CreatorID != actorID {
		return nil, ErrForbidden
	}
	return s.Apps.ListByTask(ctx, taskID)
}

// ListByUser returns the user's own applications with their tasks.
func (s *ApplicationService) ListByUser(ctx context.Context, userID int64) ([]*repository.ApplicationWithTask, error) {
	return s.Apps.ListByUser(ctx, userID)
}
