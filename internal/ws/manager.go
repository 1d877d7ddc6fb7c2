package ws

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"evmobile/internal/clock"
	"evmobile/internal/models"
)

// DefaultReconnectDelay is the fixed pause between a close and the next dial.
const DefaultReconnectDelay = 2 * time.Second

// Handler receives connection lifecycle and parsed events.
type Handler interface {
	OnOpen()
	OnEvent(evt models.Event)
}

// TokenSource yields the access token put on the socket URL.
type TokenSource interface {
	AccessToken() string
}

// SessionSource yields the session id known at (re)connect time.
type SessionSource interface {
	SessionID() string
}

// Config holds socket settings.
type Config struct {
	URL            string
	ReconnectDelay time.Duration
	WriteTimeout   time.Duration
}

// Manager owns the single event feed socket. It reconnects after a fixed
// delay on every close and never gives up until Close is called.
type Manager struct {
	cfg      Config
	dialer   Dialer
	tokens   TokenSource
	sessions SessionSource
	clock    clock.Clock
	logger   *zap.Logger

	mu        sync.Mutex
	writeMu   sync.Mutex
	ctx       context.Context
	handler   Handler
	conn      Conn
	gen       uint64
	dialing   bool
	connected bool
	closed    bool
	reconnect clock.Timer
	lastEvent *models.Event
}

// NewManager builds the connection manager.
func NewManager(cfg Config, dialer Dialer, tokens TokenSource, sessions SessionSource, clk clock.Clock, logger *zap.Logger) *Manager {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		dialer:   dialer,
		tokens:   tokens,
		sessions: sessions,
		clock:    clk,
		logger:   logger,
		ctx:      context.Background(),
	}
}

// SetHandler attaches the event handler. Call before Connect.
func (m *Manager) SetHandler(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// Run connects and blocks until ctx is done, then tears the socket down.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	m.Connect()
	<-ctx.Done()
	m.Close()
	return nil
}

// Connect opens the socket if none is open. An explicit connect re-enables a
// manager that was previously closed.
func (m *Manager) Connect() {
	m.mu.Lock()
	m.closed = false
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	m.mu.Unlock()
	m.dial()
}

func (m *Manager) dial() {
	m.mu.Lock()
	if m.closed || m.conn != nil || m.dialing {
		m.mu.Unlock()
		return
	}
	token := ""
	if m.tokens != nil {
		token = m.tokens.AccessToken()
	}
	if token == "" {
		m.mu.Unlock()
		m.logger.Debug("no access token, socket stays closed")
		return
	}
	m.dialing = true
	ctx := m.ctx
	m.mu.Unlock()

	conn, err := m.dialer.Dial(ctx, m.buildURL(token))

	m.mu.Lock()
	m.dialing = false
	if err != nil {
		m.mu.Unlock()
		m.logger.Warn("event feed dial failed", zap.Error(err))
		m.scheduleReconnect()
		return
	}
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.gen++
	gen := m.gen
	m.conn = conn
	m.connected = true
	handler := m.handler
	m.mu.Unlock()

	m.logger.Info("event feed connected")
	go m.readPump(conn, gen)

	if id := m.currentSession(); id != "" {
		m.Subscribe(id)
	}
	if handler != nil {
		handler.OnOpen()
	}
}

func (m *Manager) buildURL(token string) string {
	u, err := url.Parse(m.cfg.URL)
	if err != nil {
		return m.cfg.URL
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (m *Manager) currentSession() string {
	if m.sessions == nil {
		return ""
	}
	return m.sessions.SessionID()
}

func (m *Manager) readPump(conn Conn, gen uint64) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(gen, err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		m.handleFrame(data)
	}
}

func (m *Manager) handleFrame(data []byte) {
	evt, err := models.ParseEvent(data)
	if err != nil {
		m.logger.Warn("failed to decode event", zap.Error(err), zap.ByteString("frame", truncate(data, 256)))
		return
	}
	evt.ReceivedAt = m.clock.Now()

	m.mu.Lock()
	m.lastEvent = &evt
	handler := m.handler
	m.mu.Unlock()

	if handler != nil {
		handler.OnEvent(evt)
	}
}

// handleClose treats errors and closes identically: mark disconnected and
// schedule exactly one reconnect. Closes of superseded sockets are ignored.
func (m *Manager) handleClose(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen || m.conn == nil {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.conn = nil
	m.connected = false
	m.mu.Unlock()

	_ = conn.Close()
	m.logger.Info("event feed closed", zap.Error(cause))
	m.scheduleReconnect()
}

func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.reconnect != nil {
		return
	}
	m.logger.Info("scheduling event feed reconnect", zap.Duration("delay", m.cfg.ReconnectDelay))
	m.reconnect = m.clock.AfterFunc(m.cfg.ReconnectDelay, func() {
		m.mu.Lock()
		m.reconnect = nil
		m.mu.Unlock()
		m.dial()
	})
}

// Send marshals v and writes it as a text frame. Messages are dropped while
// the socket is not open.
func (m *Manager) Send(v interface{}) bool {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		m.logger.Debug("socket closed, dropping outgoing message")
		return false
	}

	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn("failed to encode outgoing message", zap.Error(err))
		return false
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if d, ok := conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
		_ = d.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout))
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		m.logger.Warn("failed to write outgoing message", zap.Error(err))
		return false
	}
	return true
}

// Subscribe scopes session events to sessionID.
func (m *Manager) Subscribe(sessionID string) {
	if sessionID == "" {
		return
	}
	m.Send(models.SubscriptionMessage{Type: models.MessageSubscribe, SessionID: sessionID})
}

// Unsubscribe drops the session scope.
func (m *Manager) Unsubscribe(sessionID string) {
	if sessionID == "" {
		return
	}
	m.Send(models.SubscriptionMessage{Type: models.MessageUnsubscribe, SessionID: sessionID})
}

// Connected reports whether the socket is open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// LastEvent returns the most recently parsed inbound event.
func (m *Manager) LastEvent() (models.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastEvent == nil {
		return models.Event{}, false
	}
	return *m.lastEvent, true
}

// Close tears the socket down and cancels any pending reconnect.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	conn := m.conn
	m.conn = nil
	m.connected = false
	m.gen++
	m.mu.Unlock()

	if conn != nil {
		m.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		m.writeMu.Unlock()
		_ = conn.Close()
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
