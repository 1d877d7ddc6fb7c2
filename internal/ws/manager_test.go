package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"evmobile/internal/clock"
	"evmobile/internal/models"
)

var errFakeClosed = errors.New("fake: closed")

type frame struct {
	typ  int
	data []byte
}

type fakeConn struct {
	mu        sync.Mutex
	frames    chan frame
	writes    [][]byte
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan frame, 16)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	fr, ok := <-f.frames
	if !ok {
		return 0, nil, errFakeClosed
	}
	return fr.typ, fr.data, nil
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if messageType == websocket.TextMessage {
		f.writes = append(f.writes, append([]byte(nil), data...))
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.frames) })
	return nil
}

func (f *fakeConn) push(data string) {
	f.frames <- frame{typ: websocket.TextMessage, data: []byte(data)}
}

func (f *fakeConn) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

type fakeDialer struct {
	mu    sync.Mutex
	urls  []string
	conns []*fakeConn
	err   error
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func (d *fakeDialer) setErr(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

type staticSource string

func (s staticSource) AccessToken() string { return string(s) }
func (s staticSource) SessionID() string   { return string(s) }

type recordingHandler struct {
	mu     sync.Mutex
	opens  int
	events []models.Event
}

func (h *recordingHandler) OnOpen() {
	h.mu.Lock()
	h.opens++
	h.mu.Unlock()
}

func (h *recordingHandler) OnEvent(evt models.Event) {
	h.mu.Lock()
	h.events = append(h.events, evt)
	h.mu.Unlock()
}

func (h *recordingHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opens, len(h.events)
}

func newTestManager(dialer Dialer, session string) (*Manager, *clock.Manual, *recordingHandler) {
	clk := clock.NewManual(time.Unix(0, 0))
	m := NewManager(Config{URL: "wss://feed.example/ws/mobile"}, dialer, staticSource("tok-1"), staticSource(session), clk, nil)
	h := &recordingHandler{}
	m.SetHandler(h)
	return m, clk, h
}

func TestConnectAddsTokenAndSubscribes(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, h := newTestManager(dialer, "abc123")

	m.Connect()

	if !m.Connected() {
		t.Fatalf("expected connected")
	}
	if dialer.dials() != 1 || !strings.HasSuffix(dialer.urls[0], "/ws/mobile?token=tok-1") {
		t.Fatalf("unexpected dial urls %v", dialer.urls)
	}
	if opens, _ := h.counts(); opens != 1 {
		t.Fatalf("expected one open callback, got %d", opens)
	}

	writes := dialer.conn(0).written()
	if len(writes) != 1 {
		t.Fatalf("expected subscribe message, got %d writes", len(writes))
	}
	var msg models.SubscriptionMessage
	if err := json.Unmarshal(writes[0], &msg); err != nil {
		t.Fatalf("decode subscribe: %v", err)
	}
	if msg.Type != models.MessageSubscribe || msg.SessionID != "abc123" {
		t.Fatalf("unexpected subscribe %+v", msg)
	}
	m.Close()
}

func TestMalformedFrameKeepsConnection(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, h := newTestManager(dialer, "")
	m.Connect()

	conn := dialer.conn(0)
	conn.push("{not json")
	conn.push(`{"data":{}}`)
	conn.push(`{"event_type":"METER_CHANGE","data":{"session_id":"abc123"}}`)

	waitFor(t, time.Second, func() bool {
		_, events := h.counts()
		return events == 1
	})
	if !m.Connected() {
		t.Fatalf("expected connection to survive malformed frames")
	}
	evt, ok := m.LastEvent()
	if !ok || evt.Type != models.EventMeterChange {
		t.Fatalf("unexpected last event %+v", evt)
	}
	m.Close()
}

func TestReconnectAfterFixedDelay(t *testing.T) {
	dialer := &fakeDialer{}
	m, clk, h := newTestManager(dialer, "")
	m.Connect()

	dialer.conn(0).Close()
	waitFor(t, time.Second, func() bool { return !m.Connected() && clk.Pending() == 1 })

	clk.Advance(DefaultReconnectDelay - time.Millisecond)
	if dialer.dials() != 1 {
		t.Fatalf("expected no reconnect before delay, got %d dials", dialer.dials())
	}

	clk.Advance(time.Millisecond)
	if dialer.dials() != 2 {
		t.Fatalf("expected reconnect after delay, got %d dials", dialer.dials())
	}
	if !m.Connected() {
		t.Fatalf("expected connected after reconnect")
	}
	if opens, _ := h.counts(); opens != 2 {
		t.Fatalf("expected open callback on reconnect, got %d", opens)
	}
	m.Close()
}

func TestRepeatedClosesDoNotStackTimers(t *testing.T) {
	dialer := &fakeDialer{}
	m, clk, _ := newTestManager(dialer, "")
	m.Connect()

	first := dialer.conn(0)
	first.Close()
	waitFor(t, time.Second, func() bool { return clk.Pending() == 1 })

	// a stale close for the same socket must not arm a second timer
	m.handleClose(1, errFakeClosed)
	m.scheduleReconnect()
	if clk.Pending() != 1 {
		t.Fatalf("expected a single reconnect timer, got %d", clk.Pending())
	}

	dialer.setErr(errors.New("network down"))
	clk.Advance(DefaultReconnectDelay)
	if dialer.dials() != 2 {
		t.Fatalf("expected one reconnect attempt, got %d dials", dialer.dials())
	}
	if clk.Pending() != 1 {
		t.Fatalf("expected failed dial to re-arm exactly one timer, got %d", clk.Pending())
	}

	dialer.setErr(nil)
	clk.Advance(DefaultReconnectDelay)
	if dialer.dials() != 3 || !m.Connected() {
		t.Fatalf("expected reconnect to succeed, dials=%d", dialer.dials())
	}
	m.Close()
}

func TestCloseCancelsReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	m, clk, _ := newTestManager(dialer, "")
	m.Connect()

	dialer.conn(0).Close()
	waitFor(t, time.Second, func() bool { return clk.Pending() == 1 })

	m.Close()
	if clk.Pending() != 0 {
		t.Fatalf("expected reconnect timer cancelled, got %d", clk.Pending())
	}
	clk.Advance(10 * DefaultReconnectDelay)
	if dialer.dials() != 1 {
		t.Fatalf("expected no dial after teardown, got %d", dialer.dials())
	}
}

func TestSendDropsWhileClosed(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, _ := newTestManager(dialer, "")
	if m.Send(map[string]string{"type": "PING"}) {
		t.Fatalf("expected send to be dropped before connect")
	}

	m.Connect()
	if !m.Send(map[string]string{"type": "PING"}) {
		t.Fatalf("expected send to succeed while open")
	}
	if got := len(dialer.conn(0).written()); got != 1 {
		t.Fatalf("expected one write, got %d", got)
	}
	m.Close()
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
