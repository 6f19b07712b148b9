package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user and bootstraps their point account at balance 0
// in the same transaction.
func (r *Repository) Create(ctx context.Context, email, passwordHash, displayName string) (*User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var u User
	row := tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, display_name)
		VALUES ($1, $2, $3)
		RETURNING id, email, display_name
	`, email, passwordHash, displayName)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO point_accounts (user_id, balance) VALUES ($1, 0)
	`, u.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns the user and password hash for login. Returns nil if
// not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, string, error) {
	var u User
	var passwordHash string
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash
		FROM users WHERE email = $1
	`, email)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &u, passwordHash, nil
}

// GetByID returns the user with their current point balance.
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	var u User
	row := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.display_name, COALESCE(a.balance, 0)
		FROM users u
		LEFT JOIN point_accounts a ON a.user_id = u.id
		WHERE u.id = $1
	`, id)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
