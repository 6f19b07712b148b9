package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskRating is a raw completion rating. One per rater per task; no derived
// reputation score is computed here.
type TaskRating struct {
	ID        int64     `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	RaterID   int64     `json:"rater_id"`
	RateeID   int64     `json:"ratee_id"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
