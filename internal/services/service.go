package services

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/taskpoint/backend/internal/models"
	"github.com/taskpoint/backend/internal/notifications"
)

// TxBeginner abstracts transaction creation so tests don't need a
// pgxpool.Pool. Every mutating operation runs inside one transaction with
// the task row locked first.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AuditWriter is the append-only audit sink. CreateTx failures abort the
// whole operation: money movement without its audit row never commits.
type AuditWriter interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.AuditLogEntry) error
}

// EnqueueNoticeTxFunc enqueues a system notice within the given transaction.
// Provided by main as a closure over river.Client.InsertTx; the worker
// delivers it after commit, so notice failures never touch committed state.
type EnqueueNoticeTxFunc func(ctx context.Context, tx pgx.Tx, args notifications.SystemNoticeArgs) error

func auditMetadata(m map[string]any) (json.RawMessage, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return b, nil
}
