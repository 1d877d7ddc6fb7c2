package models

import (
	"encoding/json"
	"errors"
	"time"
)

// EventType discriminates inbound socket frames.
type EventType string

// Known socket events.
const (
	EventWalletTopupSuccess EventType = "WALLET_TOPUP_SUCCESS"
	EventStartCharging      EventType = "START_CHARGING"
	EventStopCharging       EventType = "STOP_CHARGING"
	EventMeterChange        EventType = "METER_CHANGE"
)

// Event is a parsed inbound frame.
type Event struct {
	Type       EventType       `json:"event_type"`
	Data       json.RawMessage `json:"data,omitempty"`
	ReceivedAt time.Time       `json:"-"`
}

// ErrMissingEventType is returned for frames without a discriminator.
var ErrMissingEventType = errors.New("models: event_type missing")

// ParseEvent decodes a text frame.
func ParseEvent(raw []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		return Event{}, err
	}
	if evt.Type == "" {
		return Event{}, ErrMissingEventType
	}
	return evt, nil
}

// TopupEventData is the payload of WALLET_TOPUP_SUCCESS.
type TopupEventData struct {
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transaction_id"`
	Date          string  `json:"date"`
}

// SessionEventData is the payload of the charging events.
type SessionEventData struct {
	SessionID string `json:"session_id"`
}

// DecodeData unmarshals the event payload. An empty payload leaves target untouched.
func (e Event) DecodeData(target interface{}) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, target)
}

// Outbound message types sent on the socket.
const (
	MessageSubscribe   = "SUBSCRIBE"
	MessageUnsubscribe = "UNSUBSCRIBE"
)

// SubscriptionMessage asks the feed to scope session events to one session.
type SubscriptionMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}
