package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpoint/backend/internal/models"
)

// ErrApplicationClosed is returned by Upsert when the existing application is
// accepted or rejected and may not be overwritten.
var ErrApplicationClosed = errors.New("application already accepted or rejected")

// ApplicationWithApplicant is a list row enriched with applicant data.
// Enrichments come from LEFT JOINs and degrade to defaults, never errors.
type ApplicationWithApplicant struct {
	models.Application
	ApplicantName   string  `json:"applicant_name"`
	ApplicantRating float64 `json:"applicant_rating"`
}

// ApplicationWithTask is a list row enriched with the parent task.
type ApplicationWithTask struct {
	models.Application
	TaskTitle    string `json:"task_title"`
	TaskStatus   string `json:"task_status"`
	RewardPoints int    `json:"reward_points"`
}

type ApplicationRepo struct {
	pool *pgxpool.Pool
}

func NewApplicationRepo(pool *pgxpool.Pool) *ApplicationRepo {
	return &ApplicationRepo{pool: pool}
}

// Upsert creates the application, or overwrites a prior applied/withdrawn row
// for the same (task, user) and resets it to applied. Accepted and rejected
// rows are immutable; overwriting one returns ErrApplicationClosed.
func (r *ApplicationRepo) Upsert(ctx context.Context, a *models.Application) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO task_applications (task_id, user_id, status, cover_letter, answers)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (task_id, user_id) DO UPDATE
			SET status = EXCLUDED.status,
			    cover_letter = EXCLUDED.cover_letter,
			    answers = EXCLUDED.answers,
			    updated_at = now()
			WHERE task_applications.status IN ($3, $6)
		RETURNING id, created_at, updated_at
	`, a.TaskID, a.UserID, models.ApplicationStatusApplied, a.CoverLetter, a.Answers, models.ApplicationStatusWithdrawn).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrApplicationClosed
	}
	if err != nil {
		return err
	}
	a.Status = models.ApplicationStatusApplied
	return nil
}

func (r *ApplicationRepo) GetByTaskUser(ctx context.Context, taskID uuid.UUID, userID int64) (*models.Application, error) {
	return scanApplication(r.pool.QueryRow(ctx, `
		SELECT id, task_id, user_id, status, cover_letter, answers, created_at, updated_at
		FROM task_applications WHERE task_id = $1 AND user_id = $2
	`, taskID, userID))
}

// GetByTaskUserForUpdate locks the application row. Call within a transaction
// that already holds the task row lock.
func (r *ApplicationRepo) GetByTaskUserForUpdate(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, userID int64) (*models.Application, error) {
	return scanApplication(tx.QueryRow(ctx, `
		SELECT id, task_id, user_id, status, cover_letter, answers, created_at, updated_at
		FROM task_applications WHERE task_id = $1 AND user_id = $2 FOR UPDATE
	`, taskID, userID))
}

func (r *ApplicationRepo) SetStatusTx(ctx context.Context, tx pgx.Tx, id int64, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE task_applications SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	return err
}

// RejectOpenSiblingsTx rejects every still-applied application on the task
// except the accepted user's, in one statement so the fan-out is never
// partially visible. Returns the affected applicant ids for notification.
func (r *ApplicationRepo) RejectOpenSiblingsTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, exceptUserID int64) ([]int64, error) {
	rows, err := tx.Query(ctx, `
		UPDATE task_applications SET status = $3, updated_at = now()
		WHERE task_id = $1 AND user_id <> $2 AND status = $4
		RETURNING user_id
	`, taskID, exceptUserID, models.ApplicationStatusRejected, models.ApplicationStatusApplied)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Withdraw moves an applied application to withdrawn. Returns false when no
// applied row exists for (task, user).
func (r *ApplicationRepo) Withdraw(ctx context.Context, taskID uuid.UUID, userID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE task_applications SET status = $3, updated_at = now()
		WHERE task_id = $1 AND user_id = $2 AND status = $4
	`, taskID, userID, models.ApplicationStatusWithdrawn, models.ApplicationStatusApplied)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByTask returns the task's applications with applicant display name and
// average received rating (0 when unrated).
func (r *ApplicationRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*ApplicationWithApplicant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.task_id, a.user_id, a.status, a.cover_letter, a.answers, a.created_at, a.updated_at,
		       COALESCE(u.display_name, ''),
		       COALESCE(AVG(rt.score), 0)
		FROM task_applications a
		LEFT JOIN users u ON u.id = a.user_id
		LEFT JOIN task_ratings rt ON rt.ratee_id = a.user_id
		WHERE a.task_id = $1
		GROUP BY a.id, u.display_name
		ORDER BY a.created_at ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*ApplicationWithApplicant
	for rows.Next() {
		var row ApplicationWithApplicant
		if err := rows.Scan(&row.ID, &row.TaskID, &row.UserID, &row.Status, &row.CoverLetter, &row.Answers, &row.CreatedAt, &row.UpdatedAt,
			&row.ApplicantName, &row.ApplicantRating); err != nil {
			return nil, err
		}
		list = append(list, &row)
	}
	return list, rows.Err()
}

// ListByUser returns a user's applications joined with their task.
func (r *ApplicationRepo) ListByUser(ctx context.Context, userID int64) ([]*ApplicationWithTask, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.task_id, a.user_id, a.status, a.cover_letter, a.answers, a.created_at, a.updated_at,
		       t.title, t.status, t.reward_points
		FROM task_applications a
		JOIN tasks t ON t.id = a.task_id
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*ApplicationWithTask
	for rows.Next() {
		var row ApplicationWithTask
		if err := rows.Scan(&row.ID, &row.TaskID, &row.UserID, &row.Status, &row.CoverLetter, &row.Answers, &row.CreatedAt, &row.UpdatedAt,
			&row.TaskTitle, &row.TaskStatus, &row.RewardPoints); err != nil {
			return nil, err
		}
		list = append(list, &row)
	}
	return list, rows.Err()
}

func scanApplication(row pgx.Row) (*models.Application, error) {
	var a models.Application
	err := row.Scan(&a.ID, &a.TaskID, &a.UserID, &a.Status, &a.CoverLetter, &a.Answers, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
