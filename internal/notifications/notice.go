package notifications

import (
	"github.com/google/uuid"
)

// SystemNoticeArgs is the river job payload for one system notice. Notices
// are inserted with InsertTx inside the same transaction as the state change
// they describe, so delivery starts only after that transaction commits and
// a rolled-back operation never produces a notice.
type SystemNoticeArgs struct {
	TaskID      uuid.UUID `json:"task_id"`
	RecipientID int64     `json:"recipient_id"`
	Body        string    `json:"body"`
}

func (SystemNoticeArgs) Kind() string { return "system_notice" }
