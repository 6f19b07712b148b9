package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taskpoint/backend/internal/middleware"
	"github.com/taskpoint/backend/internal/models"
)

// AccountReader reads point balances.
type AccountReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.PointAccount, error)
}

// LedgerReader reads the point transaction history.
type LedgerReader interface {
	ListByUser(ctx context.Context, userID int64) ([]*models.PointTransaction, error)
}

// AccountHandler serves the /v1/account endpoints.
type AccountHandler struct {
	Accounts AccountReader
	Ledger   LedgerReader
	Logger   *slog.Logger
}

// Balance handles GET /v1/account/balance.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.UserIDFromCtx(r.Context())
	acct, err := h.Accounts.GetByUserID(r.Context(), actorID)
	if err != nil {
		h.Logger.Error("get balance", "user_id", actorID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// LedgerHistory handles GET /v1/account/ledger.
func (h *AccountHandler) LedgerHistory(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.UserIDFromCtx(r.Context())
	entries, err := h.Ledger.ListByUser(r.Context(), actorID)
	if err != nil {
		h.Logger.Error("list ledger", "user_id", actorID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.PointTransaction{}
	}
	writeJSON(w, http.StatusOK, entries)
}
