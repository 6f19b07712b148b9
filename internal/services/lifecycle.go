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

// LifecycleTaskRepo is the task repository surface the state machine needs.
type LifecycleTaskRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	AssignParticipantTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, participantID int64) error
	SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
}

// LifecycleApplicationRepo is the application surface the state machine needs.
type LifecycleApplicationRepo interface {
	GetByTaskUserForUpdate(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, userID int64) (*models.Application, error)
	SetStatusTx(ctx context.Context, tx pgx.Tx, id int64, status string) error
	RejectOpenSiblingsTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, exceptUserID int64) ([]int64, error)
}

// LifecycleService owns the task status transitions:
//
//	open -> in_progress -> pending_confirmation -> completed
//	pending_confirmation -> in_progress (disagree)
//	open -> cancelled
//
// Settlement (-> completed) and disputes live in their own services; every
// transition here runs in one transaction holding the task row lock.
type LifecycleService struct {
	DB     TxBeginner
	Tasks  LifecycleTaskRepo
	Apps   LifecycleApplicationRepo
	Audit  AuditWriter
	Notify EnqueueNoticeTxFunc
	Logger *slog.Logger
}

func NewLifecycleService(db TxBeginner, tasks LifecycleTaskRepo, apps LifecycleApplicationRepo, audit AuditWriter, notify EnqueueNoticeTxFunc, logger *slog.Logger) *LifecycleService {
	return &LifecycleService{DB: db, Tasks: tasks, Apps: apps, Audit: audit, Notify: notify, Logger: logger}
}

// Accept assigns the task to the chosen applicant. In one transaction: the
// task moves to in_progress with participant_id set, the chosen application
// is accepted, and every other still-applied application is rejected, so the
// fan-out is never partially visible.
func (s *LifecycleService) Accept(ctx context.Context, taskID uuid.UUID, applicantID, actorID int64) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	task, err := s.lockTask(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if task.Status != models.TaskStatusOpen {
		return invalidTaskState(task.Status)
	}
	if task.CreatorID != actorID {
		return ErrForbidden
	}

	app, err := s.Apps.GetByTaskUserForUpdate(ctx, tx, taskID, applicantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if app.Status != models.ApplicationStatusApplied {
		return &InvalidStateError{Subject: "application", Current: app.Status}
	}

	if err := s.Tasks.AssignParticipantTx(ctx, tx, taskID, applicantID); err != nil {
		return err
	}
	if err := s.Apps.SetStatusTx(ctx, tx, app.ID, models.ApplicationStatusAccepted); err != nil {
		return err
	}
	rejected, err := s.Apps.RejectOpenSiblingsTx(ctx, tx, taskID, applicantID)
	if err != nil {
		return err
	}

	if err := s.Audit.CreateTx(ctx, tx, &models.AuditLogEntry{
		ID:          uuid.New(),
		ActorID:     actorID,
		SubjectType: "task",
		SubjectID:   taskID.String(),
		Action:      models.AuditActionTaskAccepted,
		BeforeValue: models.TaskStatusOpen,
		AfterValue:  models.TaskStatusInProgress,
		Metadata:    []byte(fmt.Sprintf(`{"participant_id":%d,"rejected":%d}`, applicantID, len(rejected))),
	}); err != nil {
		return err
	}

	s.notify(ctx, tx, notifications.SystemNoticeArgs{
		TaskID: taskID, RecipientID: applicantID,
		Body: fmt.Sprintf("Your application for %q was accepted.", task.Title),
	})
	for _, userID := range rejected {
		s.notify(ctx, tx, notifications.SystemNoticeArgs{
			TaskID: taskID, RecipientID: userID,
			Body: fmt.Sprintf("Your application for %q was not selected.", task.Title),
		})
	}

	return tx.Commit(ctx)
}

// Reject rejects one applicant without touching the rest.
func (s *LifecycleService) Reject(ctx context.Context, taskID uuid.UUID, applicantID, actorID int64) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	task, err := s.lockTask(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if task.Status != models.TaskStatusOpen {
		return invalidTaskState(task.Status)
	}
	if task.CreatorID != actorID {
		return ErrForbidden
	}

	app, err := s.Apps.GetByTaskUserForUpdate(ctx, tx, taskID, applicantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if app.Status != models.ApplicationStatusApplied {
		return &InvalidStateError{Subject: "application", Current: app.Status}
	}

	if err := s.Apps.SetStatusTx(ctx, tx, app.ID, models.ApplicationStatusRejected); err != nil {
		return err
	}
	if err := s.Audit.CreateTx(ctx, tx, &models.AuditLogEntry{
		ID:          uuid.New(),
		ActorID:     actorID,
		SubjectType: "application",
		SubjectID:   fmt.Sprintf("%d", app.ID),
		Action:      models.AuditActionTaskRejected,
		BeforeValue: models.ApplicationStatusApplied,
		AfterValue:  models.ApplicationStatusRejected,
	}); err != nil {
		return err
	}

	s.notify(ctx, tx, notifications.SystemNoticeArgs{
		TaskID: taskID, RecipientID: applicantID,
		Body: fmt.Sprintf("Your application for %q was not selected.", task.Title),
	})

	return tx.Commit(ctx)
}

// RequestCompletion is the participant marking the work done, moving the
// task to pending_confirmation for the creator to review.
func (s *LifecycleService) RequestCompletion(ctx context.Context, taskID uuid.UUID, actorID int64) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	task, err := s.lockTask(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if task.Status != models.TaskStatusInProgress {
		return invalidTaskState(task.Status)
	}
	if task.ParticipantID == nil || *task.ParticipantID != actorID {
		return ErrForbidden
	}

	if err := s.Tasks.SetStatusTx(ctx, tx, taskID, models.TaskStatusPendingConfirmation); err != nil {
		return err
	}
	if err := s.Audit.CreateTx(ctx, tx, &models.AuditLogEntry{
		ID:          uuid.New(),
		ActorID:     actorID,
		SubjectType: "task",
		SubjectID:   taskID.String(),
		Action:      models.AuditActionCompletionPending,
		BeforeValue: models.TaskStatusInProgress,
		AfterValue:  models.TaskStatusPendingConfirmation,
	}); err != nil {
		return err
	}

	s.notify(ctx, tx, notifications.SystemNoticeArgs{
		TaskID: taskID, RecipientID: task.CreatorID,
		Body: fmt.Sprintf("Completion requested for %q. Please confirm or disagree.", task.Title),
	})

	return tx.Commit(ctx)
}

// DisagreeCompletion reverts a pending confirmation back to in_progress.
// The creator's reason is sanitized and capped before it is stored anywhere.
func (s *LifecycleService) DisagreeCompletion(ctx context.Context, taskID uuid.UUID, actorID int64, reason string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	task, err := s.lockTask(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if task.Status != models.TaskStatusPendingConfirmation {
		return invalidTaskState(task.Status)
	}
	if task.CreatorID != actorID {
		return ErrForbidden
	}

	reason = SanitizeText(reason, ReasonMaxLen)

	if err := s.Tasks.SetStatusTx(ctx, tx, taskID, models.TaskStatusInProgress); err != nil {
		return err
	}
	meta, err := auditMetadata(map[string]any{"reason": reason})
	if err != nil {
		return err
	}
	if err := s.Audit.CreateTx(ctx, tx, &models.AuditLogEntry{
		ID:          uuid.New(),
		ActorID:     actorID,
		SubjectType: "task",
		SubjectID:   taskID.String(),
		Action:      models.AuditActionCompletionDenied,
		BeforeValue: models.TaskStatusPendingConfirmation,
		AfterValue:  models.TaskStatusInProgress,
		Metadata:    meta,
	}); err != nil {
		return err
	}

	if task.ParticipantID != nil {
		body := fmt.Sprintf("Completion of %q was disputed by the poster.", task.Title)
		if reason != "" {
			body = fmt.Sprintf("Completion of %q was disputed by the poster: %s", task.Title, reason)
		}
		s.notify(ctx, tx, notifications.SystemNoticeArgs{TaskID: taskID, RecipientID: *task.ParticipantID, Body: body})
	}

	return tx.Commit(ctx)
}

// Cancel closes an open task before anyone was accepted. Terminal.
func (s *LifecycleService) Cancel(ctx context.Context, taskID uuid.UUID, actorID int64) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	task, err := s.lockTask(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if task.Status != models.TaskStatusOpen {
		return invalidTaskState(task.Status)
	}
	if task.CreatorID != actorID {
		return ErrForbidden
	}

	if err := s.Tasks.SetStatusTx(ctx, tx, taskID, models.TaskStatusCancelled); err != nil {
		return err
	}
	if err := s.Audit.CreateTx(ctx, tx, &models.AuditLogEntry{
		ID:          uuid.New(),
		ActorID:     actorID,
		SubjectType: "task",
		SubjectID:   taskID.String(),
		Action:      models.AuditActionTaskCancelled,
		BeforeValue: models.TaskStatusOpen,
		AfterValue:  models.TaskStatusCancelled,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *LifecycleService) lockTask(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.Tasks.GetByIDForUpdate(ctx, tx, taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return task, err
}

// notify enqueues a system notice. Notices are best-effort; an enqueue
// failure is logged and swallowed, never failing the operation.
func (s *LifecycleService) notify(ctx context.Context, tx pgx.Tx, args notifications.SystemNoticeArgs) {
	if s.Notify == nil {
		return
	}
	if err := s.Notify(ctx, tx, args); err != nil {
		s.Logger.Error("enqueue system notice", "task_id", args.TaskID, "recipient_id", args.RecipientID, "error", err)
	}
}
