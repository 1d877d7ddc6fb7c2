package models

import (
	"gopkg.in/guregu/null.v4"
)

// SessionStatus is the server-side lifecycle state of a charging session.
type SessionStatus string

// Session statuses.
const (
	SessionStatusSent      SessionStatus = "SENT"
	SessionStatusCharging  SessionStatus = "CHARGING"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusFailed    SessionStatus = "FAILED"
)

// Terminal reports whether no further telemetry is expected.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// SessionSnapshot is the last known server state of an active charging session.
// Telemetry fields are nullable because the backend omits them between meter samples.
type SessionSnapshot struct {
	SessionID         string        `json:"session_id"`
	Status            SessionStatus `json:"status"`
	EnergyKWh         null.Float    `json:"energy_kwh"`
	SOCPercent        null.Int      `json:"soc_percent"`
	MinutesRemaining  null.Int      `json:"minutes_remaining"`
	ChargingMinutes   null.Int      `json:"charging_minutes"`
	PriceAccrued      null.Float    `json:"price"`
	MaxAmount         null.Int      `json:"max_amount"`
	OCPPTransactionID null.Int      `json:"ocpp_transaction_id"`
	ChargerPointID    null.String   `json:"charger_point_id"`
	ConnectorID       null.String   `json:"connector_id"`
	ConnectorNumber   null.Int      `json:"connector_number"`
	StartedAt         null.Time     `json:"started_at"`
	LastUpdateAt      null.Time     `json:"last_update_at"`
}

// RemoteStartRequest is the body of v1/chargers/remote-start.
type RemoteStartRequest struct {
	ConnectorID string `json:"connector_id"`
	IDTag       string `json:"id_tag"`
}

// RemoteStartResponse is returned by remote-start. Status SENT means the charger accepted the command.
type RemoteStartResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Message   string `json:"message,omitempty"`
}

// RemoteStopRequest is the body of v1/chargers/remote-stop.
type RemoteStopRequest struct {
	OCPPTransactionID int64  `json:"ocpp_transaction_id"`
	ChargerPointID    string `json:"charger_point_id"`
	ConnectorID       string `json:"connector_id"`
	ConnectorNumber   int64  `json:"connector_number"`
}

// RemoteStopResponse is returned by remote-stop.
type RemoteStopResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ChargingHistoryRequest pages through past sessions.
type ChargingHistoryRequest struct {
	Page   int    `json:"page"`
	Size   int    `json:"size"`
	Search string `json:"search"`
}

// ChargingHistoryItem is one finished session.
type ChargingHistoryItem struct {
	SessionID    string     `json:"session_id"`
	LocationName string     `json:"location_name"`
	Status       string     `json:"status"`
	EnergyKWh    null.Float `json:"energy_kwh"`
	Price        null.Float `json:"price"`
	StartedAt    null.Time  `json:"started_at"`
	EndedAt      null.Time  `json:"ended_at"`
}
