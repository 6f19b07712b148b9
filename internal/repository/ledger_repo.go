package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpoint/backend/internal/models"
)

type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// CreateTx appends a point transaction inside the given transaction.
func (r *LedgerRepo) CreateTx(ctx context.Context, tx pgx.Tx, p *models.PointTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO point_transactions (id, user_id, amount, entry_type, task_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, p.ID, p.UserID, p.Amount, p.EntryType, p.TaskID, p.Description).Scan(&p.CreatedAt)
}

// CreateFeeRevenueTx appends a fee revenue row inside the given transaction.
func (r *LedgerRepo) CreateFeeRevenueTx(ctx context.Context, tx pgx.Tx, f *models.FeeRevenue) error {
	return tx.QueryRow(ctx, `
		INSERT INTO fee_revenue_ledger (id, task_id, payer_id, fee_points, fee_rate)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, f.ID, f.TaskID, f.PayerID, f.FeePoints, f.FeeRate).Scan(&f.CreatedAt)
}

func (r *LedgerRepo) ListByUser(ctx context.Context, userID int64) ([]*models.PointTransaction, error) {
	return r.queryTransactions(ctx, `
		SELECT id, user_id, amount, entry_type, task_id, description, created_at
		FROM point_transactions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
}

func (r *LedgerRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.PointTransaction, error) {
	return r.queryTransactions(ctx, `
		SELECT id, user_id, amount, entry_type, task_id, description, created_at
		FROM point_transactions WHERE task_id = $1 ORDER BY created_at ASC
	`, taskID)
}

func (r *LedgerRepo) queryTransactions(ctx context.Context, sql string, args ...any) ([]*models.PointTransaction, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.PointTransaction
	for rows.Next() {
		var p models.PointTransaction
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.EntryType, &p.TaskID, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
