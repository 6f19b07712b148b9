package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpoint/backend/internal/models"
)

// ErrDuplicateRating is returned when the rater already rated this task.
var ErrDuplicateRating = errors.New("task already rated by this user")

type RatingRepo struct {
	pool *pgxpool.Pool
}

func NewRatingRepo(pool *pgxpool.Pool) *RatingRepo {
	return &RatingRepo{pool: pool}
}

func (r *RatingRepo) Create(ctx context.Context, rt *models.TaskRating) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO task_ratings (task_id, rater_id, ratee_id, score, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, rt.TaskID, rt.RaterID, rt.RateeID, rt.Score, rt.Comment).Scan(&rt.ID, &rt.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateRating
	}
	return err
}

// AverageForUser returns the user's mean received score, 0 when unrated.
func (r *RatingRepo) AverageForUser(ctx context.Context, userID int64) (float64, error) {
	var avg float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(score), 0) FROM task_ratings WHERE ratee_id = $1
	`, userID).Scan(&avg)
	return avg, err
}
