package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"evmobile/internal/clients"
	"evmobile/internal/scan"
	"evmobile/internal/service"
)

// Scanner is the stabilizer as seen by the status API.
type Scanner interface {
	OnDetection(value string, box scan.Rect)
	Rescan()
	Accepted() bool
	Pending() (string, int, bool)
}

// Stopper stops the active charging session.
type Stopper interface {
	StopCharging(ctx context.Context) error
}

type scanRequest struct {
	Value string     `json:"value"`
	Box   *scan.Rect `json:"box"`
}

type scanResponse struct {
	Accepted     bool   `json:"accepted"`
	PendingValue string `json:"pending_value,omitempty"`
	PendingCount int    `json:"pending_count"`
}

// NewScanHandler returns POST /scan handler. Detections without a box use
// defaultBox, which sits centered in the guide.
func NewScanHandler(scanner Scanner, defaultBox scan.Rect) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scanRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		if strings.TrimSpace(req.Value) == "" {
			writeError(w, http.StatusBadRequest, "value is required")
			return
		}
		box := defaultBox
		if req.Box != nil {
			box = *req.Box
		}
		scanner.OnDetection(req.Value, box)
		writeJSON(w, http.StatusOK, scanState(scanner))
	}
}

// NewRescanHandler returns POST /rescan handler.
func NewRescanHandler(scanner Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scanner.Rescan()
		writeJSON(w, http.StatusOK, scanState(scanner))
	}
}

// NewStopHandler returns POST /stop handler.
func NewStopHandler(stopper Stopper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := stopper.StopCharging(r.Context())
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
		case errors.Is(err, service.ErrNoActiveSession):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusBadGateway, clients.UserMessage(err))
		}
	}
}

func scanState(scanner Scanner) scanResponse {
	value, count, _ := scanner.Pending()
	return scanResponse{Accepted: scanner.Accepted(), PendingValue: value, PendingCount: count}
}
