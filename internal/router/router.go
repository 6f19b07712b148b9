package router

import (
	"net/http"

	"github.com/taskpoint/backend/internal/auth"
)

// New returns an http.Handler that serves the public API under /api/v1.
// Everything else (the authenticated /v1 task API) is registered in
// cmd/api/routes.go.
func New(authHandler *auth.Handler) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"
	mux.HandleFunc(base+"/auth/register", authHandler.Register)
	mux.HandleFunc(base+"/auth/login", authHandler.Login)
	return mux
}
