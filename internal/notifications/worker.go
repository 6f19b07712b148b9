package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/taskpoint/backend/internal/models"
)

// TaskLookup resolves the task so the room can be keyed by
// (task_id, creator_id, participant_id).
type TaskLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

// ChatStore is the notification sink's storage interface.
type ChatStore interface {
	EnsureRoom(ctx context.Context, taskID uuid.UUID, creatorID int64, participantID *int64) (uuid.UUID, error)
	InsertSystemMessage(ctx context.Context, roomID uuid.UUID, body string) error
}

// SystemNoticeWorker delivers system notices to the task's chat room.
// Delivery is best-effort relative to the core: the state change that
// produced the notice has already committed, and a failure here is retried
// by river without ever touching that state.
type SystemNoticeWorker struct {
	river.WorkerDefaults[SystemNoticeArgs]
	tasks  TaskLookup
	chat   ChatStore
	logger *slog.Logger
}

func NewSystemNoticeWorker(tasks TaskLookup, chat ChatStore, logger *slog.Logger) *SystemNoticeWorker {
	return &SystemNoticeWorker{tasks: tasks, chat: chat, logger: logger}
}

func (w *SystemNoticeWorker) Work(ctx context.Context, job *river.Job[SystemNoticeArgs]) error {
	args := job.Args

	task, err := w.tasks.GetByID(ctx, args.TaskID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Task gone; nothing to deliver to. Drop rather than retry forever.
		w.logger.Warn("system notice dropped, task missing", "task_id", args.TaskID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load task for notice: %w", err)
	}

	roomID, err := w.chat.EnsureRoom(ctx, task.ID, task.CreatorID, task.ParticipantID)
	if err != nil {
		return fmt.Errorf("ensure chat room: %w", err)
	}
	if err := w.chat.InsertSystemMessage(ctx, roomID, args.Body); err != nil {
		return fmt.Errorf("insert system message: %w", err)
	}

	w.logger.Info("system notice delivered", "task_id", args.TaskID, "recipient_id", args.RecipientID)
	return nil
}
