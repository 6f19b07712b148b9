package models

import "time"

// PointAccount is a per-user integer balance. It is mutated only inside
// settlement transactions; the balance never goes negative.
type PointAccount struct {
	UserID    int64     `json:"user_id"`
	Balance   int       `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}
