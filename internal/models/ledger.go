package models

import (
	"time"

	"github.com/google/uuid"
)

// Point transaction entry_type enums. For one completed task the signed
// entries net to zero: spend(-reward) + earn(+net) + fee(+fee) == 0.
const (
	PointEntrySpend = "spend"
	PointEntryEarn  = "earn"
	PointEntryFee   = "fee"
)

// PointTransaction is an immutable signed record of a point movement.
type PointTransaction struct {
	ID          uuid.UUID  `json:"id"`
	UserID      int64      `json:"user_id"`
	Amount      int        `json:"amount"`
	EntryType   string     `json:"entry_type"`
	TaskID      *uuid.UUID `json:"task_id,omitempty"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FeeRevenue records the platform's cut of one settlement.
type FeeRevenue struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	PayerID   int64     `json:"payer_id"`
	FeePoints int       `json:"fee_points"`
	FeeRate   float64   `json:"fee_rate"`
	CreatedAt time.Time `json:"created_at"`
}
