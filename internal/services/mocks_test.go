package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taskpoint/backend/internal/models"
	"github.com/taskpoint/backend/internal/notifications"
	"github.com/taskpoint/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// In-memory mocks shared by the service tests. They let us exercise the real
// service logic without a database; transactional visibility is not modeled.
// ---------------------------------------------------------------------------

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback matter. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

// --- mockDB records whether a transaction was committed. ---

type recordTx struct {
	noopTx
	committed *bool
}

func (t recordTx) Commit(context.Context) error { *t.committed = true; return nil }

type mockDB struct {
	committed bool
}

func (m *mockDB) Begin(context.Context) (pgx.Tx, error) {
	return recordTx{committed: &m.committed}, nil
}

// --- task repo mock ---

type mockTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*models.Task
}

func newMockTaskRepo(ts ...*models.Task) *mockTaskRepo {
	m := &mockTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
	for _, t := range ts {
		cp := *t
		m.tasks[t.ID] = &cp
	}
	return m
}

func (m *mockTaskRepo) get(id uuid.UUID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	return m.get(id)
}

func (m *mockTaskRepo) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return m.get(id)
}

func (m *mockTaskRepo) AssignParticipantTx(_ context.Context, _ pgx.Tx, id uuid.UUID, participantID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tasks[id]
	t.Status = models.TaskStatusInProgress
	t.ParticipantID = &participantID
	return nil
}

func (m *mockTaskRepo) SetStatusTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[id].Status = status
	return nil
}

func (m *mockTaskRepo) MarkCompletedTx(_ context.Context, _ pgx.Tx, id uuid.UUID, feePoints int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tasks[id]
	t.Status = models.TaskStatusCompleted
	t.FeePoints = &feePoints
	now := time.Now()
	t.SettledAt = &now
	return nil
}

func (m *mockTaskRepo) status(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id].Status
}

// --- application repo mock ---

type mockAppRepo struct {
	mu   sync.Mutex
	next int64
	apps []*models.Application
}

func newMockAppRepo(apps ...*models.Application) *mockAppRepo {
	m := &mockAppRepo{next: 1}
	for _, a := range apps {
		cp := *a
		if cp.ID == 0 {
			cp.ID = m.next
		}
		if cp.ID >= m.next {
			m.next = cp.ID + 1
		}
		m.apps = append(m.apps, &cp)
	}
	return m
}

func (m *mockAppRepo) find(taskID uuid.UUID, userID int64) *models.Application {
	for _, a := range m.apps {
		if a.TaskID == taskID && a.UserID == userID {
			return a
		}
	}
	return nil
}

func (m *mockAppRepo) GetByTaskUserForUpdate(_ context.Context, _ pgx.Tx, taskID uuid.UUID, userID int64) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.find(taskID, userID)
	if a == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppRepo) SetStatusTx(_ context.Context, _ pgx.Tx, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.ID == id {
			a.Status = status
		}
	}
	return nil
}

func (m *mockAppRepo) RejectOpenSiblingsTx(_ context.Context, _ pgx.Tx, taskID uuid.UUID, exceptUserID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, a := range m.apps {
		if a.TaskID == taskID && a.UserID != exceptUserID && a.Status == models.ApplicationStatusApplied {
			a.Status = models.ApplicationStatusRejected
			ids = append(ids, a.UserID)
		}
	}
	return ids, nil
}

func (m *mockAppRepo) Upsert(_ context.Context, a *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing := m.find(a.TaskID, a.UserID); existing != nil {
		if existing.Status != models.ApplicationStatusApplied && existing.Status != models.ApplicationStatusWithdrawn {
			return repository.ErrApplicationClosed
		}
		existing.Status = models.ApplicationStatusApplied
		existing.CoverLetter = a.CoverLetter
		existing.Answers = a.Answers
		a.ID = existing.ID
		return nil
	}
	a.ID = m.next
	m.next++
	cp := *a
	m.apps = append(m.apps, &cp)
	return nil
}

func (m *mockAppRepo) Withdraw(_ context.Context, taskID uuid.UUID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.find(taskID, userID)
	if a == nil || a.Status != models.ApplicationStatusApplied {
		return false, nil
	}
	a.Status = models.ApplicationStatusWithdrawn
	return true, nil
}

func (m *mockAppRepo) ListByTask(_ context.Context, taskID uuid.UUID) ([]*repository.ApplicationWithApplicant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repository.ApplicationWithApplicant
	for _, a := range m.apps {
		if a.TaskID == taskID {
			out = append(out, &repository.ApplicationWithApplicant{Application: *a})
		}
	}
	return out, nil
}

func (m *mockAppRepo) ListByUser(_ context.Context, userID int64) ([]*repository.ApplicationWithTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repository.ApplicationWithTask
	for _, a := range m.apps {
		if a.UserID == userID {
			out = append(out, &repository.ApplicationWithTask{Application: *a})
		}
	}
	return out, nil
}

func (m *mockAppRepo) statusOf(taskID uuid.UUID, userID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.find(taskID, userID)
	if a == nil {
		return ""
	}
	return a.Status
}

// --- point account mock ---

type mockAccountRepo struct {
	mu       sync.Mutex
	balances map[int64]int
}

func newMockAccountRepo(balances map[int64]int) *mockAccountRepo {
	m := &mockAccountRepo{balances: make(map[int64]int)}
	for id, b := range balances {
		m.balances[id] = b
	}
	return m
}

func (m *mockAccountRepo) GetByUserIDForUpdate(_ context.Context, _ pgx.Tx, userID int64) (*models.PointAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &models.PointAccount{UserID: userID, Balance: b}, nil
}

func (m *mockAccountRepo) Debit(_ context.Context, _ pgx.Tx, userID int64, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[userID] < amount {
		// The real repository's conditional UPDATE matches no row.
		return 0, pgx.ErrNoRows
	}
	m.balances[userID] -= amount
	return m.balances[userID], nil
}

func (m *mockAccountRepo) Credit(_ context.Context, _ pgx.Tx, userID int64, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += amount
	return m.balances[userID], nil
}

func (m *mockAccountRepo) balance(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

// --- ledger mock ---

type mockLedgerRepo struct {
	mu       sync.Mutex
	entries  []*models.PointTransaction
	revenues []*models.FeeRevenue
}

func (m *mockLedgerRepo) CreateTx(_ context.Context, _ pgx.Tx, p *models.PointTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockLedgerRepo) CreateFeeRevenueTx(_ context.Context, _ pgx.Tx, f *models.FeeRevenue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.revenues = append(m.revenues, &cp)
	return nil
}

func (m *mockLedgerRepo) byType(entryType string) []*models.PointTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PointTransaction
	for _, e := range m.entries {
		if e.EntryType == entryType {
			out = append(out, e)
		}
	}
	return out
}

// --- dispute mock ---

type mockDisputeRepo struct {
	mu       sync.Mutex
	disputes []*models.Dispute
}

func (m *mockDisputeRepo) FindOpenByTaskTx(_ context.Context, _ pgx.Tx, taskID uuid.UUID) (*models.Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.disputes {
		if d.TaskID == taskID && d.Status == models.DisputeStatusOpen {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockDisputeRepo) CreateTx(_ context.Context, _ pgx.Tx, d *models.Dispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.disputes = append(m.disputes, &cp)
	return nil
}

func (m *mockDisputeRepo) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.disputes {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockDisputeRepo) ResolveTx(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.disputes {
		if d.ID == id && d.Status == models.DisputeStatusOpen {
			d.Status = models.DisputeStatusResolved
			now := time.Now()
			d.ResolvedAt = &now
			return true, nil
		}
	}
	return false, nil
}

// --- audit mock ---

type mockAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLogEntry
	failErr error
}

func (m *mockAuditRepo) CreateTx(_ context.Context, _ pgx.Tx, e *models.AuditLogEntry) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockAuditRepo) byAction(action string) []*models.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AuditLogEntry
	for _, e := range m.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// --- fee rate mock ---

type mockFeeRate struct {
	rate  float64
	found bool
}

func (m *mockFeeRate) ActiveRate(context.Context) (float64, bool, error) {
	return m.rate, m.found, nil
}

// --- notice capture ---

type noticeCapture struct {
	mu      sync.Mutex
	notices []notifications.SystemNoticeArgs
}

func (c *noticeCapture) enqueue(_ context.Context, _ pgx.Tx, args notifications.SystemNoticeArgs) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, args)
	return nil
}

func (c *noticeCapture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notices)
}
