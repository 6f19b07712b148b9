package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Application status enums.
const (
	ApplicationStatusApplied   = "applied"
	ApplicationStatusAccepted  = "accepted"
	ApplicationStatusRejected  = "rejected"
	ApplicationStatusWithdrawn = "withdrawn"
)

// Application is a worker's bid to perform a task. At most one application
// per (task, user); re-applying overwrites the previous applied/withdrawn row.
type Application struct {
	ID          int64           `json:"id"`
	TaskID      uuid.UUID       `json:"task_id"`
	UserID      int64           `json:"user_id"`
	Status      string          `json:"status"`
	CoverLetter string          `json:"cover_letter"`
	Answers     json.RawMessage `json:"answers,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
