package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskpoint/backend/internal/models"
	"github.com/taskpoint/backend/internal/notifications"
)

// DisputeTaskRepo is the task surface the dispute handler needs.
type DisputeTaskRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
}

// DisputeRepo is the dispute storage surface.
type DisputeRepo interface {
	FindOpenByTaskTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (*models.Dispute, error)
	CreateTx(ctx context.Context, tx pgx.Tx, d *models.Dispute) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Dispute, error)
	ResolveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// DisputeService freezes settlement while a disagreement is worked out.
// Exactly one open dispute per task, enforced by lookup-then-insert under
// the task row lock (concurrent opens serialize on that lock).
type DisputeService struct {
	DB       TxBeginner
	Tasks    DisputeTaskRepo
	Disputes DisputeRepo
	Audit    AuditWriter
	Notify   EnqueueNoticeTxFunc
	Logger   *slog.Logger
}

func NewDisputeService(db TxBeginner, tasks DisputeTaskRepo, disputes DisputeRepo, audit AuditWriter, notify EnqueueNoticeTxFunc, logger *slog.Logger) *DisputeService {
	return &DisputeService{DB: db, Tasks: tasks, Disputes: disputes, Audit: audit, Notify: notify, Logger: logger}
}

// Open freezes the task in dispute. Allowed to either party, only from
// pending_confirmation or completed.
func (s *DisputeService) Open(ctx context.Context, taskID uuid.UUID, actorID int64, reason, description string) (*models.Dispute, error) {
	reason = SanitizeText(reason, ReasonMaxLen)
	description = SanitizeText(description, DescriptionMaxLen)
	if reason == "" {
		return nil, validationf("reason is required")
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	task, err := s.Tasks.GetByIDForUpdate(ctx, tx, taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !isParty(task, actorID) {
		return nil, ErrForbidden
	}
	if task.Status != models.TaskStatusPendingConfirmation && task.Status != models.TaskStatusCompleted {
		return nil, invalidTaskState(task.Status)
	}

	if existing, err := s.Disputes.FindOpenByTaskTx(ctx, tx, taskID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDisputeAlreadyOpen
	}

	d := &models.Dispute{
		ID:          uuid.New(),
		TaskID:      taskID,
		UserID:      actorID,
		Reason:      reason,
		Description: description,
		Status:      models.DisputeStatusOpen,
	}
	if err := s.Disputes.CreateTx(ctx, tx, d); err != nil {
		return nil, err
	}
	if err := s.Tasks.SetStatusTx(ctx, tx, taskID, models.TaskStatusDispute); err != nil {
		return nil, err
	}

	meta, err := auditMetadata(map[string]any{"dispute_id": d.ID, "reason": reason})
	if err != nil {
		return nil, err
	}
	if err := s.Audit.CreateTx(ctx, tx, &models.AuditLogEntry{
		ID:          uuid.New(),
		ActorID:     actorID,
		SubjectType: "task",
		SubjectID:   taskID.String(),
		Action:      models.AuditActionDisputeOpened,
		BeforeValue: task.Status,
		AfterValue:  models.TaskStatusDispute,
		Metadata:    meta,
	}); err != nil {
		return nil, err
	}

	if other := counterparty(task, actorID); other != 0 {
		s.notifyParty(ctx, tx, taskID, other, fmt.Sprintf("A dispute was opened on %q: %s", task.Title, reason))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Logger.Info("dispute opened", "task_id", taskID, "dispute_id", d.ID, "user_id", actorID)
	return d, nil
}

// Resolve closes an open dispute and returns the task to in_progress so the
// lifecycle can proceed to a new confirmation (or another dispute).
func (s *DisputeService) Resolve(ctx context.Context, disputeID uuid.UUID, actorID int64) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	d, err := s.Disputes.GetByIDForUpdate(ctx, tx, disputeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if d.Status != models.DisputeStatusOpen {
		return &InvalidStateError{Subject: "dispute", Current: d.Status}
	}

	task, err := s.Tasks.GetByIDForUpdate(ctx, tx, d.TaskID)
	if err != nil {
		return err
	}
	if !isParty(task, actorID) {
		return ErrForbidden
	}

	ok, err := s.Disputes.ResolveTx(ctx, tx, disputeID)
	if err != nil {
		return err
	}
	if !ok {
		return &InvalidStateError{Subject: "dispute", Current: d.Status}
	}
	if err := s.Tasks.SetStatusTx(ctx, tx, d.TaskID, models.TaskStatusInProgress); err != nil {
		return err
	}
	if err := s.Audit.CreateTx(ctx, tx, &models.AuditLogEntry{
		ID:          uuid.New(),
		ActorID:     actorID,
		SubjectType: "dispute",
		SubjectID:   disputeID.String(),
		Action:      models.AuditActionDisputeResolved,
		BeforeValue: models.DisputeStatusOpen,
		AfterValue:  models.DisputeStatusResolved,
	}); err != nil {
		return err
	}

	if other := counterparty(task, actorID); other != 0 {
		s.notifyParty(ctx, tx, task.ID, other, fmt.Sprintf("The dispute on %q was resolved.", task.Title))
	}

	return tx.Commit(ctx)
}

func (s *DisputeService) notifyParty(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, recipientID int64, body string) {
	if s.Notify == nil {
		return
	}
	if err := s.Notify(ctx, tx, notifications.SystemNoticeArgs{TaskID: taskID, RecipientID: recipientID, Body: body}); err != nil {
		s.Logger.Error("enqueue system notice", "task_id", taskID, "recipient_id", recipientID, "error", err)
	}
}

// counterparty returns the other party of the task, or 0 when there is none.
func counterparty(task *models.Task, userID int64) int64 {
	if task.CreatorID != userID {
		return task.CreatorID
	}
	if task.ParticipantID != nil {
		return *task.ParticipantID
	}
	return 0
}
