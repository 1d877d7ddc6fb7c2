package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"evmobile/internal/clients"
	"evmobile/internal/models"
)

var (
	// ErrInvalidCode is returned when a scanned value carries no connector id.
	ErrInvalidCode = errors.New("service: scanned code is not a charger connector")
	// ErrInsufficientBalance is returned when the wallet cannot cover a session start.
	ErrInsufficientBalance = errors.New("service: insufficient wallet balance")
	// ErrStartRejected is returned when the charger did not accept remote-start.
	ErrStartRejected = errors.New("service: charger rejected the start request")
	// ErrNoActiveSession is returned by StopCharging when nothing can be stopped.
	ErrNoActiveSession = errors.New("service: no active charging session")
)

const sessionInProgressMessage = "A charging session is already in progress"

// ChargerAPI is the charger part of the REST surface.
type ChargerAPI interface {
	RemoteStart(ctx context.Context, req models.RemoteStartRequest) (*models.RemoteStartResponse, error)
	RemoteStop(ctx context.Context, req models.RemoteStopRequest) (*models.RemoteStopResponse, error)
	ChargingHistory(ctx context.Context, req models.ChargingHistoryRequest) (*models.Page[models.ChargingHistoryItem], error)
}

// Subscriber scopes the socket feed to a session.
type Subscriber interface {
	Subscribe(sessionID string)
	Connected() bool
}

// ChargingConfig holds the start parameters.
type ChargingConfig struct {
	MinStartBalance float64
	IDTag           string
}

// ChargingService runs the scan to start to stop flow.
type ChargingService struct {
	cfg      ChargingConfig
	api      ChargerAPI
	store    *Store
	wallet   *WalletService
	sessions *SessionSync
	socket   Subscriber
	nav      Navigator
	notifier Notifier
	logger   *zap.Logger
}

// NewChargingService returns service.
func NewChargingService(cfg ChargingConfig, api ChargerAPI, store *Store, wallet *WalletService, sessions *SessionSync, socket Subscriber, nav Navigator, notifier Notifier, logger *zap.Logger) *ChargingService {
	if nav == nil {
		nav = nopNavigator{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChargingService{
		cfg:      cfg,
		api:      api,
		store:    store,
		wallet:   wallet,
		sessions: sessions,
		socket:   socket,
		nav:      nav,
		notifier: notifier,
		logger:   logger,
	}
}

// ParseConnectorID extracts the connector id from a scanned value. It accepts
// a bare id, a URL with a connector_id query parameter, or a URL whose last
// path segment is the id.
func ParseConnectorID(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrInvalidCode
	}
	if !strings.Contains(value, "/") && !strings.Contains(value, "?") {
		if strings.ContainsAny(value, " \t\r\n") {
			return "", ErrInvalidCode
		}
		return value, nil
	}

	u, err := url.Parse(value)
	if err != nil {
		return "", ErrInvalidCode
	}
	if id := strings.TrimSpace(u.Query().Get("connector_id")); id != "" {
		return id, nil
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		return "", ErrInvalidCode
	}
	id, err := url.PathUnescape(last)
	if err != nil || id == "" {
		return "", ErrInvalidCode
	}
	return id, nil
}

// HandleScan runs after the stabilizer accepted a code: balance check, remote
// start, then session tracking. The caller keeps the scan latch set on error
// until the user rescans. A tracked session, including one still on the
// result view, blocks the start until it is stopped or dismissed.
func (s *ChargingService) HandleScan(ctx context.Context, value string) error {
	connectorID, err := ParseConnectorID(value)
	if err != nil {
		s.notifier.Toast("Invalid charger code")
		return err
	}
	if current := s.store.SessionID(); current != "" {
		s.logger.Info("start blocked by tracked session", zap.String("session_id", current))
		s.notifier.Toast(sessionInProgressMessage)
		return ErrSessionInProgress
	}

	if err := s.wallet.Refresh(ctx); err != nil {
		s.notifier.Toast(clients.UserMessage(err))
		return fmt.Errorf("refresh wallet: %w", err)
	}
	balance, _ := s.store.Wallet()
	if balance.Amount < s.cfg.MinStartBalance {
		s.logger.Info("start blocked by balance",
			zap.Float64("balance", balance.Amount),
			zap.Float64("min_start_balance", s.cfg.MinStartBalance),
		)
		s.notifier.Toast("Insufficient balance, please top up your wallet")
		s.nav.Navigate(RouteTopup, nil)
		return ErrInsufficientBalance
	}

	resp, err := s.api.RemoteStart(ctx, models.RemoteStartRequest{ConnectorID: connectorID, IDTag: s.cfg.IDTag})
	if err != nil {
		s.notifier.Toast(clients.UserMessage(err))
		return fmt.Errorf("remote start: %w", err)
	}
	if models.SessionStatus(resp.Status) != models.SessionStatusSent || resp.SessionID == "" {
		msg := resp.Message
		if msg == "" {
			msg = "Charger did not accept the request"
		}
		s.notifier.Toast(msg)
		return fmt.Errorf("%w: status %q", ErrStartRejected, resp.Status)
	}

	if err := s.store.StartSession(resp.SessionID); err != nil {
		s.logger.Warn("started session could not be tracked", zap.String("session_id", resp.SessionID), zap.Error(err))
		s.notifier.Toast(sessionInProgressMessage)
		return err
	}
	s.logger.Info("charging session started",
		zap.String("session_id", resp.SessionID),
		zap.String("connector_id", connectorID),
	)
	s.socket.Subscribe(resp.SessionID)
	s.sessions.Refresh(ctx, resp.SessionID)

	snap, _ := s.store.Snapshot()
	s.nav.Navigate(RouteChargingDetail, ChargingParams{SessionID: resp.SessionID, Snapshot: &snap})
	return nil
}

// StopCharging asks the charger to stop the active session. On success the
// session is cleared and the result view shows the final snapshot.
func (s *ChargingService) StopCharging(ctx context.Context) error {
	sessionID := s.store.SessionID()
	if sessionID == "" || !s.socket.Connected() {
		return ErrNoActiveSession
	}

	snap, _ := s.store.Snapshot()
	if !snap.OCPPTransactionID.Valid {
		s.sessions.Refresh(ctx, sessionID)
		snap, _ = s.store.Snapshot()
	}
	if !snap.OCPPTransactionID.Valid {
		return fmt.Errorf("%w: charger has not reported a transaction yet", ErrNoActiveSession)
	}

	req := models.RemoteStopRequest{
		OCPPTransactionID: snap.OCPPTransactionID.Int64,
		ChargerPointID:    snap.ChargerPointID.String,
		ConnectorID:       snap.ConnectorID.String,
		ConnectorNumber:   snap.ConnectorNumber.Int64,
	}
	if _, err := s.api.RemoteStop(ctx, req); err != nil {
		s.notifier.Toast(clients.UserMessage(err))
		return fmt.Errorf("remote stop: %w", err)
	}

	s.logger.Info("charging session stopped", zap.String("session_id", sessionID))
	s.store.ClearSession()
	s.nav.Navigate(RouteChargingResult, ChargingParams{SessionID: sessionID, Snapshot: &snap})
	return nil
}

// Dismiss drops the session when the user navigates away from the result view.
func (s *ChargingService) Dismiss() {
	s.store.ClearSession()
}

// History pages through past sessions.
func (s *ChargingService) History(ctx context.Context, page, size int, search string) (*models.Page[models.ChargingHistoryItem], error) {
	return s.api.ChargingHistory(ctx, models.ChargingHistoryRequest{Page: page, Size: size, Search: search})
}
