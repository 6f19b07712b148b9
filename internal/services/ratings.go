package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskpoint/backend/internal/models"
)

// RatingStore persists raw completion ratings.
type RatingStore interface {
	Create(ctx context.Context, rt *models.TaskRating) error
}

// RatingService stores raw completion ratings. No reputation score is
// derived; reads only ever aggregate with AVG.
type RatingService struct {
	Tasks   ApplicationTaskLookup
	Ratings RatingStore
	Logger  *slog.Logger
}

func NewRatingService(tasks ApplicationTaskLookup, ratings RatingStore, logger *slog.Logger) *RatingService {
	return &RatingService{Tasks: tasks, Ratings: ratings, Logger: logger}
}

// RateTask records the actor's rating of the counterparty on a completed
// task. One rating per rater per task.
func (s *RatingService) RateTask(ctx context.Context, taskID uuid.UUID, raterID int64, score int, comment string) (*models.TaskRating, error) {
	if score < 1 || score > 5 {
		return nil, validationf("score must be between 1 and 5")
	}

	task, err := s.Tasks.GetByID(ctx, taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusCompleted {
		return nil, invalidTaskState(task.Status)
	}
	if !isParty(task, raterID) {
		return nil, ErrForbidden
	}

	rt := &models.TaskRating{
		TaskID:  taskID,
		RaterID: raterID,
		RateeID: counterparty(task, raterID),
		Score:   score,
		Comment: SanitizeText(comment, DescriptionMaxLen),
	}
	if err := s.Ratings.Create(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}
