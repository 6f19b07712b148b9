package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpoint/backend/internal/models"
)

// AuditRepo is the append-only audit trail. There is no update or delete.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

const auditInsert = `
	INSERT INTO audit_log (id, actor_id, subject_type, subject_id, action, before_value, after_value, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at
`

// CreateTx writes an audit row inside the given transaction. A failure here
// must abort the caller's whole operation: a balance mutation without its
// audit row is never allowed to commit.
func (r *AuditRepo) CreateTx(ctx context.Context, tx pgx.Tx, e *models.AuditLogEntry) error {
	return tx.QueryRow(ctx, auditInsert,
		e.ID, e.ActorID, e.SubjectType, e.SubjectID, e.Action, e.BeforeValue, e.AfterValue, e.Metadata).Scan(&e.CreatedAt)
}

// Create writes an audit row outside any transaction, for best-effort
// post-commit records. Callers log and swallow the error.
func (r *AuditRepo) Create(ctx context.Context, e *models.AuditLogEntry) error {
	return r.pool.QueryRow(ctx, auditInsert,
		e.ID, e.ActorID, e.SubjectType, e.SubjectID, e.Action, e.BeforeValue, e.AfterValue, e.Metadata).Scan(&e.CreatedAt)
}

func (r *AuditRepo) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]*models.AuditLogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_id, subject_type, subject_id, action, before_value, after_value, metadata, created_at
		FROM audit_log WHERE subject_type = $1 AND subject_id = $2 ORDER BY created_at ASC
	`, subjectType, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.SubjectType, &e.SubjectID, &e.Action, &e.BeforeValue, &e.AfterValue, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
