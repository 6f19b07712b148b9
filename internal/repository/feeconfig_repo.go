package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpoint/backend/internal/models"
)

type FeeConfigRepo struct {
	pool *pgxpool.Pool
}

func NewFeeConfigRepo(pool *pgxpool.Pool) *FeeConfigRepo {
	return &FeeConfigRepo{pool: pool}
}

// ActiveRate returns the active platform fee rate (0.0–1.0). found is false
// when no active row exists; callers default to 0 and log a warning.
func (r *FeeConfigRepo) ActiveRate(ctx context.Context) (rate float64, found bool, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT rate FROM fee_config WHERE active ORDER BY created_at DESC LIMIT 1
	`).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rate, true, nil
}

// SetActiveRate deactivates any prior configuration and installs rate as the
// single active one.
func (r *FeeConfigRepo) SetActiveRate(ctx context.Context, rate float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `UPDATE fee_config SET active = FALSE WHERE active`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO fee_config (rate, active) VALUES ($1, TRUE)`, rate); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *FeeConfigRepo) List(ctx context.Context) ([]*models.FeeConfig, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, rate, active, created_at FROM fee_config ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.FeeConfig
	for rows.Next() {
		var f models.FeeConfig
		if err := rows.Scan(&f.ID, &f.Rate, &f.Active, &f.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &f)
	}
	return list, rows.Err()
}
