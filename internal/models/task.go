package models

import (
	"time"

	"github.com/google/uuid"
)

// Task status codes. The tasks.status column is a foreign key into
// task_statuses, so an unknown code fails at the database, not silently.
const (
	TaskStatusOpen                = "open"
	TaskStatusInProgress          = "in_progress"
	TaskStatusPendingConfirmation = "pending_confirmation"
	TaskStatusCompleted           = "completed"
	TaskStatusDispute             = "dispute"
	TaskStatusCancelled           = "cancelled"
)

type Task struct {
	ID            uuid.UUID  `json:"id"`
	CreatorID     int64      `json:"creator_id"`
	ParticipantID *int64     `json:"participant_id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	RewardPoints  int        `json:"reward_points"`
	Status        string     `json:"status"`
	FeePoints     *int       `json:"fee_points,omitempty"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasParticipant reports whether the task is in a state that carries an
// assigned worker. participant_id is set iff this returns true.
func (t *Task) HasParticipant() bool {
	switch t.Status {
	case TaskStatusInProgress, TaskStatusPendingConfirmation, TaskStatusCompleted, TaskStatusDispute:
		return true
	}
	return false
}
