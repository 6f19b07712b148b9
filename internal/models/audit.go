package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit action names.
const (
	AuditActionTaskAccepted      = "task.accepted"
	AuditActionTaskRejected      = "task.application_rejected"
	AuditActionTaskCancelled     = "task.cancelled"
	AuditActionCompletionPending = "task.completion_requested"
	AuditActionCompletionDenied  = "task.completion_disagreed"
	AuditActionSettlementReward  = "settlement.reward"
	AuditActionSettlementFee     = "settlement.fee"
	AuditActionDisputeOpened     = "dispute.opened"
	AuditActionDisputeResolved   = "dispute.resolved"
)

// AuditLogEntry is an immutable row in the append-only audit trail.
type AuditLogEntry struct {
	ID          uuid.UUID       `json:"id"`
	ActorID     int64           `json:"actor_id"`
	SubjectType string          `json:"subject_type"`
	SubjectID   string          `json:"subject_id"`
	Action      string          `json:"action"`
	BeforeValue string          `json:"before_value,omitempty"`
	AfterValue  string          `json:"after_value,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
