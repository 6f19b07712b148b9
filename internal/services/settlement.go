package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/taskpoint/backend/internal/models"
	"github.com/taskpoint/backend/internal/notifications"
)

// Settlement holds the concrete numbers of one completion. Every successful
// confirm response carries these so callers never have to infer what moved.
type Settlement struct {
	TaskID         uuid.UUID `json:"task_id"`
	Amount         int       `json:"amount"`
	Fee            int       `json:"fee"`
	Net            int       `json:"net"`
	FeeRate        float64   `json:"fee_rate"`
	Preview        bool      `json:"preview,omitempty"`
	AlreadySettled bool      `json:"already_settled,omitempty"`
}

// SettlementTaskRepo is the task surface the engine needs.
type SettlementTaskRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	MarkCompletedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, feePoints int) error
}

// SettlementAccountRepo is the point-account surface the engine needs.
type SettlementAccountRepo interface {
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*models.PointAccount, error)
	Debit(ctx context.Context, tx pgx.Tx, userID int64, amount int) (int, error)
	Credit(ctx context.Context, tx pgx.Tx, userID int64, amount int) (int, error)
}

// SettlementLedgerRepo appends the immutable movement records.
type SettlementLedgerRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, p *models.PointTransaction) error
	CreateFeeRevenueTx(ctx context.Context, tx pgx.Tx, f *models.FeeRevenue) error
}

// OpenDisputeLookup checks for a settlement-blocking dispute inside the
// settlement transaction.
type OpenDisputeLookup interface {
	FindOpenByTaskTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (*models.Dispute, error)
}

// FeeRateProvider supplies the active platform fee rate. A missing
// configuration is not fatal; the rate defaults to 0.
type FeeRateProvider interface {
	ActiveRate(ctx context.Context) (rate float64, found bool, err error)
}

// SettlementService executes the escrow transfer on task completion: debit
// the creator by the full reward, credit the participant net of the platform
// fee, and record every movement in the same transaction.
type SettlementService struct {
	DB       TxBeginner
	Tasks    SettlementTaskRepo
	Accounts SettlementAccountRepo
	Ledger   SettlementLedgerRepo
	Disputes OpenDisputeLookup
	Fees     FeeRateProvider
	Audit    AuditWriter
	Notify   EnqueueNoticeTxFunc
	Logger   *slog.Logger
}

func NewSettlementService(db TxBeginner, tasks SettlementTaskRepo, accounts SettlementAccountRepo, ledger SettlementLedgerRepo, disputes OpenDisputeLookup, fees FeeRateProvider, audit AuditWriter, notify EnqueueNoticeTxFunc, logger *slog.Logger) *SettlementService {
	return &SettlementService{DB: db, Tasks: tasks, Accounts: accounts, Ledger: ledger, Disputes: disputes, Fees: fees, Audit: audit, Notify: notify, Logger: logger}
}

// ConfirmCompletion settles the task. With preview it only returns the
// numbers. Otherwise, in one transaction: re-check status under the task row
// lock (a second call on a completed task is a no-op returning the settled
// numbers), lock both point accounts in ascending user id order, move the
// points, append ledger rows, write exactly two audit rows, and mark the
// task completed. Any failure rolls the whole transaction back.
func (s *SettlementService) ConfirmCompletion(ctx context.Context, taskID uuid.UUID, actorID int64, preview bool) (*Settlement, error) {
	rate := s.activeRate(ctx)

	if preview {
		task, err := s.Tasks.GetByID(ctx, taskID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		if !isParty(task, actorID) {
			return nil, ErrForbidden
		}
		if task.Status == models.TaskStatusCompleted {
			return settledNumbers(task), nil
		}
		fee, net := splitReward(task.RewardPoints, rate)
		return &Settlement{TaskID: taskID, Amount: task.RewardPoints, Fee: fee, Net: net, FeeRate: rate, Preview: true}, nil
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	task, err := s.Tasks.GetByIDForUpdate(ctx, tx, taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	switch task.Status {
	case models.TaskStatusCompleted:
		// Idempotency guard: already settled, repeat the numbers, move nothing.
		return settledNumbers(task), nil
	case models.TaskStatusDispute:
		return nil, ErrDisputeAlreadyOpen
	case models.TaskStatusPendingConfirmation:
	default:
		return nil, invalidTaskState(task.Status)
	}
	if task.CreatorID != actorID {
		return nil, ErrForbidden
	}
	if task.ParticipantID == nil {
		return nil, invalidTaskState(task.Status)
	}
	if d, err := s.Disputes.FindOpenByTaskTx(ctx, tx, taskID); err != nil {
		return nil, err
	} else if d != nil {
		return nil, ErrDisputeAlreadyOpen
	}

	participantID := *task.ParticipantID
	reward := task.RewardPoints
	fee, net := splitReward(reward, rate)

	// Lock both accounts in ascending user id order to avoid deadlock with
	// a concurrent settlement touching the same pair.
	ids := []int64{task.CreatorID, participantID}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, err := s.Accounts.GetByUserIDForUpdate(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	if _, err := s.Accounts.Debit(ctx, tx, task.CreatorID, reward); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}
	if _, err := s.Accounts.Credit(ctx, tx, participantID, net); err != nil {
		return nil, err
	}

	if err := s.Ledger.CreateTx(ctx, tx, &models.PointTransaction{
		ID: uuid.New(), UserID: task.CreatorID, Amount: -reward,
		EntryType: models.PointEntrySpend, TaskID: &task.ID,
		Description: fmt.Sprintf("reward for task %q", task.Title),
	}); err != nil {
		return nil, err
	}
	if err := s.Ledger.CreateTx(ctx, tx, &models.PointTransaction{
		ID: uuid.New(), UserID: participantID, Amount: net,
		EntryType: models.PointEntryEarn, TaskID: &task.ID,
		Description: fmt.Sprintf("earnings for task %q", task.Title),
	}); err != nil {
		return nil, err
	}
	if fee > 0 {
		if err := s.Ledger.CreateTx(ctx, tx, &models.PointTransaction{
			ID: uuid.New(), UserID: task.CreatorID, Amount: fee,
			EntryType: models.PointEntryFee, TaskID: &task.ID,
			Description: "platform fee",
		}); err != nil {
			return nil, err
		}
		if err := s.Ledger.CreateFeeRevenueTx(ctx, tx, &models.FeeRevenue{
			ID: uuid.New(), TaskID: task.ID, PayerID: task.CreatorID,
			FeePoints: fee, FeeRate: rate,
		}); err != nil {
			return nil, err
		}
	}

	// Exactly two audit rows per settlement, sharing one transaction id.
	settlementTxID := uuid.New()
	meta, err := auditMetadata(map[string]any{"settlement_tx_id": settlementTxID, "fee_rate": rate})
	if err != nil {
		return nil, err
	}
	if err := s.Audit.CreateTx(ctx, tx, &models.AuditLogEntry{
		ID: uuid.New(), ActorID: actorID, SubjectType: "task", SubjectID: task.ID.String(),
		Action:      models.AuditActionSettlementReward,
		BeforeValue: models.TaskStatusPendingConfirmation,
		AfterValue:  models.TaskStatusCompleted,
		Metadata:    meta,
	}); err != nil {
		return nil, err
	}
	if err := s.Audit.CreateTx(ctx, tx, &models.AuditLogEntry{
		ID: uuid.New(), ActorID: actorID, SubjectType: "task", SubjectID: task.ID.String(),
		Action:     models.AuditActionSettlementFee,
		AfterValue: fmt.Sprintf("%d", fee),
		Metadata:   meta,
	}); err != nil {
		return nil, err
	}

	if err := s.Tasks.MarkCompletedTx(ctx, tx, task.ID, fee); err != nil {
		return nil, err
	}

	s.notify(ctx, tx, notifications.SystemNoticeArgs{
		TaskID: task.ID, RecipientID: participantID,
		Body: fmt.Sprintf("Task %q settled: %d points (fee %d, net %d).", task.Title, reward, fee, net),
	})

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.Logger.Info("task settled",
		"task_id", task.ID, "creator_id", task.CreatorID, "participant_id", participantID,
		"amount", reward, "fee", fee, "net", net)

	return &Settlement{TaskID: task.ID, Amount: reward, Fee: fee, Net: net, FeeRate: rate}, nil
}

// activeRate loads the platform fee rate, defaulting to 0 when unconfigured.
func (s *SettlementService) activeRate(ctx context.Context) float64 {
	rate, found, err := s.Fees.ActiveRate(ctx)
	if err != nil {
		s.Logger.Error("load fee rate, defaulting to 0", "error", err)
		return 0
	}
	if !found {
		s.Logger.Warn("no active fee configuration, defaulting to 0")
		return 0
	}
	return rate
}

func (s *SettlementService) notify(ctx context.Context, tx pgx.Tx, args notifications.SystemNoticeArgs) {
	if s.Notify == nil {
		return
	}
	if err := s.Notify(ctx, tx, args); err != nil {
		s.Logger.Error("enqueue system notice", "task_id", args.TaskID, "recipient_id", args.RecipientID, "error", err)
	}
}

// splitReward computes fee = round(reward * rate) and net = reward - fee.
// decimal keeps the rounding exact for rates like 0.05 that have no float64
// representation.
func splitReward(reward int, rate float64) (fee, net int) {
	f := decimal.NewFromInt(int64(reward)).Mul(decimal.NewFromFloat(rate)).Round(0)
	fee = int(f.IntPart())
	return fee, reward - fee
}

// settledNumbers reconstructs the settlement from a completed task row.
func settledNumbers(task *models.Task) *Settlement {
	fee := 0
	if task.FeePoints != nil {
		fee = *task.FeePoints
	}
	rate := 0.0
	if task.RewardPoints > 0 {
		rate = float64(fee) / float64(task.RewardPoints)
	}
	return &Settlement{
		TaskID:         task.ID,
		Amount:         task.RewardPoints,
		Fee:            fee,
		Net:            task.RewardPoints - fee,
		FeeRate:        rate,
		AlreadySettled: true,
	}
}

func isParty(task *models.Task, userID int64) bool {
	if task.CreatorID == userID {
		return true
	}
	return task.ParticipantID != nil && *task.ParticipantID == userID
}
