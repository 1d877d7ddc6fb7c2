package handlers

import (
	"context"
	"net/http"

	"evmobile/internal/service"
)

// StateReader exposes the client state.
type StateReader interface {
	State() service.AppState
}

// Lifecycle receives app lifecycle transitions.
type Lifecycle interface {
	SetForeground(ctx context.Context, foreground bool)
}

// ConnectionInfo reports socket health.
type ConnectionInfo interface {
	Connected() bool
}

// NewHealthHandler returns GET /health handler.
func NewHealthHandler(conn ConnectionInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"connected": conn != nil && conn.Connected(),
		})
	}
}

// NewStateHandler returns GET /state handler.
func NewStateHandler(state StateReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, state.State())
	}
}

type foregroundRequest struct {
	Foreground *bool `json:"foreground"`
}

// NewForegroundHandler returns POST /foreground handler.
func NewForegroundHandler(lifecycle Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req foregroundRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		if req.Foreground == nil {
			writeError(w, http.StatusBadRequest, "foreground is required")
			return
		}
		lifecycle.SetForeground(r.Context(), *req.Foreground)
		writeJSON(w, http.StatusOK, map[string]bool{"foreground": *req.Foreground})
	}
}
