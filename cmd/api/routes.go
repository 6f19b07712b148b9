package main

import (
	"log/slog"
	"net/http"

	"github.com/taskpoint/backend/internal/handlers"
	"github.com/taskpoint/backend/internal/middleware"
)

// RegisterV1Routes adds the authenticated /v1 task API to the given mux.
// Middleware chain: BearerAuth -> handler.
func RegisterV1Routes(
	mux *http.ServeMux,
	validator middleware.TokenValidator,
	th *handlers.TaskHandler,
	ah *handlers.ApplicationHandler,
	acct *handlers.AccountHandler,
	logger *slog.Logger,
) {
	auth := middleware.BearerAuth(validator)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, auth(h))
	}

	handle("POST /v1/tasks", th.CreateTask)
	handle("GET /v1/tasks", th.ListTasks)
	handle("GET /v1/tasks/{id}", th.GetTask)

	handle("POST /v1/tasks/{id}/applications", ah.Apply)
	handle("DELETE /v1/tasks/{id}/applications", ah.Withdraw)
	handle("GET /v1/tasks/{id}/applications", ah.ListByTask)
	handle("GET /v1/applications", ah.ListMine)

	handle("POST /v1/tasks/{id}/accept", th.AcceptApplication)
	handle("POST /v1/tasks/{id}/reject", th.RejectApplication)
	handle("POST /v1/tasks/{id}/request-completion", th.RequestCompletion)
	handle("POST /v1/tasks/{id}/confirm", th.ConfirmCompletion)
	handle("POST /v1/tasks/{id}/disagree", th.DisagreeCompletion)
	handle("POST /v1/tasks/{id}/cancel", th.CancelTask)

	handle("POST /v1/tasks/{id}/dispute", th.OpenDispute)
	handle("POST /v1/disputes/{id}/resolve", th.ResolveDispute)
	handle("POST /v1/tasks/{id}/rating", th.RateTask)

	handle("GET /v1/account/balance", acct.Balance)
	handle("GET /v1/account/ledger", acct.LedgerHistory)

	logger.Info("v1 task API registered")
}
