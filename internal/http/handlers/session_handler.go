package handlers

import (
	"net/http"

	"evmobile/internal/models"
)

// SessionView exposes the reconciled session with its sticky accessors.
type SessionView interface {
	SessionID() string
	Snapshot() (models.SessionSnapshot, bool)
}

// SessionClock yields the last known good time counters.
type SessionClock interface {
	MinutesRemaining() (int64, bool)
	ChargingMinutes() (int64, bool)
}

// EventSource yields the latest socket event.
type EventSource interface {
	LastEvent() (models.Event, bool)
}

// Dismisser drops a finished session.
type Dismisser interface {
	Dismiss()
}

type sessionResponse struct {
	SessionID        string                  `json:"session_id,omitempty"`
	Snapshot         *models.SessionSnapshot `json:"snapshot,omitempty"`
	MinutesRemaining *int64                  `json:"minutes_remaining,omitempty"`
	ChargingMinutes  *int64                  `json:"charging_minutes,omitempty"`
	LastEvent        models.EventType        `json:"last_event,omitempty"`
}

// NewSessionHandler returns GET /session handler.
func NewSessionHandler(view SessionView, clock SessionClock, events EventSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := sessionResponse{SessionID: view.SessionID()}
		if snap, ok := view.Snapshot(); ok {
			resp.Snapshot = &snap
		}
		if v, ok := clock.MinutesRemaining(); ok {
			resp.MinutesRemaining = &v
		}
		if v, ok := clock.ChargingMinutes(); ok {
			resp.ChargingMinutes = &v
		}
		if events != nil {
			if evt, ok := events.LastEvent(); ok {
				resp.LastEvent = evt.Type
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// NewDismissHandler returns POST /dismiss handler.
func NewDismissHandler(d Dismisser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Dismiss()
		writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
	}
}
