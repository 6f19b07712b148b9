package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpoint/backend/internal/models"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create opens a zero-balance point account for the user.
func (r *AccountRepo) Create(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO point_accounts (user_id, balance) VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (r *AccountRepo) GetByUserID(ctx context.Context, userID int64) (*models.PointAccount, error) {
	var a models.PointAccount
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, balance, updated_at FROM point_accounts WHERE user_id = $1
	`, userID).Scan(&a.UserID, &a.Balance, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByUserIDForUpdate locks the account row. Call within a transaction;
// the settlement engine locks account rows in ascending user id order.
func (r *AccountRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*models.PointAccount, error) {
	var a models.PointAccount
	err := tx.QueryRow(ctx, `
		SELECT user_id, balance, updated_at FROM point_accounts WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&a.UserID, &a.Balance, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Debit atomically deducts amount if balance >= amount. Returns pgx.ErrNoRows
// when the balance would go negative.
func (r *AccountRepo) Debit(ctx context.Context, tx pgx.Tx, userID int64, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE point_accounts SET balance = balance - $1, updated_at = now()
		WHERE user_id = $2 AND balance >= $1
		RETURNING balance
	`, amount, userID).Scan(&newBalance)
	return newBalance, err
}

// Credit adds amount and returns the new balance.
func (r *AccountRepo) Credit(ctx context.Context, tx pgx.Tx, userID int64, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE point_accounts SET balance = balance + $1, updated_at = now()
		WHERE user_id = $2
		RETURNING balance
	`, amount, userID).Scan(&newBalance)
	return newBalance, err
}
