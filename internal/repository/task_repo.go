package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpoint/backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = "id, creator_id, participant_id, title, description, reward_points, status, fee_points, settled_at, created_at, updated_at"

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.CreatorID, &t.ParticipantID, &t.Title, &t.Description, &t.RewardPoints, &t.Status, &t.FeePoints, &t.SettledAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, creator_id, title, description, reward_points, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, t.ID, t.CreatorID, t.Title, t.Description, t.RewardPoints, t.Status).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1
	`, id))
}

// GetByIDForUpdate locks the task row. Call within a transaction; every
// mutating lifecycle operation takes this lock first.
func (r *TaskRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return scanTask(tx.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE
	`, id))
}

func (r *TaskRepo) List(ctx context.Context) ([]*models.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
}

func (r *TaskRepo) ListByCreator(ctx context.Context, creatorID int64) ([]*models.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE creator_id = $1 ORDER BY created_at DESC`, creatorID)
}

func (r *TaskRepo) ListByParticipant(ctx context.Context, participantID int64) ([]*models.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE participant_id = $1 ORDER BY created_at DESC`, participantID)
}

func (r *TaskRepo) queryTasks(ctx context.Context, sql string, args ...any) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// SetStatusTx moves the task to status. Call after GetByIDForUpdate in the
// same transaction, once the transition has been validated.
func (r *TaskRepo) SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	return err
}

// AssignParticipantTx sets the task in_progress with the accepted worker.
func (r *TaskRepo) AssignParticipantTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, participantID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, participant_id = $3, updated_at = now() WHERE id = $1
	`, id, models.TaskStatusInProgress, participantID)
	return err
}

// MarkCompletedTx records the settlement result on the task row.
func (r *TaskRepo) MarkCompletedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, feePoints int) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, fee_points = $3, settled_at = now(), updated_at = now() WHERE id = $1
	`, id, models.TaskStatusCompleted, feePoints)
	return err
}
