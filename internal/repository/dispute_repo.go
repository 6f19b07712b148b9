package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpoint/backend/internal/models"
)

type DisputeRepo struct {
	pool *pgxpool.Pool
}

func NewDisputeRepo(pool *pgxpool.Pool) *DisputeRepo {
	return &DisputeRepo{pool: pool}
}

// FindOpenByTaskTx returns the task's open dispute, or nil when none exists.
// Open-dispute uniqueness is enforced by this lookup inside the task-locked
// transaction, not by a database constraint.
func (r *DisputeRepo) FindOpenByTaskTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (*models.Dispute, error) {
	d, err := scanDispute(tx.QueryRow(ctx, `
		SELECT id, task_id, user_id, reason, description, status, resolved_at, created_at
		FROM task_disputes WHERE task_id = $1 AND status = $2
	`, taskID, models.DisputeStatusOpen))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *DisputeRepo) CreateTx(ctx context.Context, tx pgx.Tx, d *models.Dispute) error {
	return tx.QueryRow(ctx, `
		INSERT INTO task_disputes (id, task_id, user_id, reason, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, d.ID, d.TaskID, d.UserID, d.Reason, d.Description, d.Status).Scan(&d.CreatedAt)
}

func (r *DisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return scanDispute(r.pool.QueryRow(ctx, `
		SELECT id, task_id, user_id, reason, description, status, resolved_at, created_at
		FROM task_disputes WHERE id = $1
	`, id))
}

// GetByIDForUpdate locks the dispute row. Call within a transaction.
func (r *DisputeRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Dispute, error) {
	return scanDispute(tx.QueryRow(ctx, `
		SELECT id, task_id, user_id, reason, description, status, resolved_at, created_at
		FROM task_disputes WHERE id = $1 FOR UPDATE
	`, id))
}

// ResolveTx marks an open dispute resolved. Returns false when the dispute
// was not open.
func (r *DisputeRepo) ResolveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE task_disputes SET status = $2, resolved_at = now()
		WHERE id = $1 AND status = $3
	`, id, models.DisputeStatusResolved, models.DisputeStatusOpen)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *DisputeRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Dispute, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, user_id, reason, description, status, resolved_at, created_at
		FROM task_disputes WHERE task_id = $1 ORDER BY created_at DESC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func scanDispute(row pgx.Row) (*models.Dispute, error) {
	var d models.Dispute
	err := row.Scan(&d.ID, &d.TaskID, &d.UserID, &d.Reason, &d.Description, &d.Status, &d.ResolvedAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
