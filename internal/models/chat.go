package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatRoom is the notification sink's storage: one room per task, keyed by
// (task_id, creator_id, participant_id).
type ChatRoom struct {
	ID            uuid.UUID `json:"id"`
	TaskID        uuid.UUID `json:"task_id"`
	CreatorID     int64     `json:"creator_id"`
	ParticipantID *int64    `json:"participant_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChatMessage is a message in a task room. System notices have a nil sender
// and IsSystem set.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	SenderID  *int64    `json:"sender_id,omitempty"`
	Body      string    `json:"body"`
	IsSystem  bool      `json:"is_system"`
	CreatedAt time.Time `json:"created_at"`
}
