package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatRepo is the notification sink's storage. The core only ever inserts
// system notices; user chat is owned elsewhere.
type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

// EnsureRoom returns the task's room id, creating the room on first use and
// keeping participant_id current as the task gets accepted.
func (r *ChatRepo) EnsureRoom(ctx context.Context, taskID uuid.UUID, creatorID int64, participantID *int64) (uuid.UUID, error) {
	var roomID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_rooms (id, task_id, creator_id, participant_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (task_id) DO UPDATE SET participant_id = COALESCE(EXCLUDED.participant_id, chat_rooms.participant_id)
		RETURNING id
	`, uuid.New(), taskID, creatorID, participantID).Scan(&roomID)
	return roomID, err
}

// InsertSystemMessage appends a plain-text system notice to the room.
func (r *ChatRepo) InsertSystemMessage(ctx context.Context, roomID uuid.UUID, body string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, room_id, sender_id, body, is_system)
		VALUES ($1, $2, NULL, $3, TRUE)
	`, uuid.New(), roomID, body)
	return err
}
