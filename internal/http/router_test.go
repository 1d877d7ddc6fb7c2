package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"evmobile/internal/clock"
	"evmobile/internal/http/handlers"
	"evmobile/internal/scan"
	"evmobile/internal/service"
)

type fakeLifecycle struct {
	mu    sync.Mutex
	calls []bool
}

func (f *fakeLifecycle) SetForeground(_ context.Context, foreground bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, foreground)
}

type fakeStopper struct {
	mu  sync.Mutex
	err error
}

func (f *fakeStopper) StopCharging(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeStopper) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeDismisser struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeDismisser) Dismiss() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

type fakeClock struct{}

func (fakeClock) MinutesRemaining() (int64, bool) { return 42, true }
func (fakeClock) ChargingMinutes() (int64, bool)  { return 0, false }

type fakeConn struct{ connected bool }

func (f fakeConn) Connected() bool { return f.connected }

type testServer struct {
	url        string
	store      *service.Store
	lifecycle  *fakeLifecycle
	stopper    *fakeStopper
	stabilizer *scan.Stabilizer
	dismisser  *fakeDismisser
	accepted   chan string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	guide := scan.Rect{X: 100, Y: 100, Width: 400, Height: 400}
	ts := &testServer{
		store:     service.NewStore(),
		lifecycle: &fakeLifecycle{},
		stopper:   &fakeStopper{},
		dismisser: &fakeDismisser{},
		accepted:  make(chan string, 1),
	}
	clk := clock.NewManual(time.Unix(0, 0))
	ts.stabilizer = scan.NewStabilizer(scan.Config{Guide: guide, Padding: 8}, clk, func(v string) { ts.accepted <- v }, nil)
	defaultBox := scan.Rect{X: 200, Y: 200, Width: 200, Height: 200}

	router := NewRouter(Routes{
		Health:     handlers.NewHealthHandler(fakeConn{connected: true}),
		State:      handlers.NewStateHandler(ts.store),
		Session:    handlers.NewSessionHandler(ts.store, fakeClock{}, nil),
		Foreground: handlers.NewForegroundHandler(ts.lifecycle),
		Scan:       handlers.NewScanHandler(ts.stabilizer, defaultBox),
		Rescan:     handlers.NewRescanHandler(ts.stabilizer),
		Stop:       handlers.NewStopHandler(ts.stopper),
		Dismiss:    handlers.NewDismissHandler(ts.dismisser),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	ts.url = srv.URL
	return ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealthAndState(t *testing.T) {
	ts := newTestServer(t)
	_ = ts.store.StartSession("abc123")

	resp, err := http.Get(ts.url + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.url + "/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	var state service.AppState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.SessionID != "abc123" || state.Snapshot == nil || state.Snapshot.Status != "SENT" {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.url + "/stop")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestForeground(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := postJSON(t, ts.url+"/foreground", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without flag, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, ts.url+"/foreground", `{"foreground":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	ts.lifecycle.mu.Lock()
	defer ts.lifecycle.mu.Unlock()
	if len(ts.lifecycle.calls) != 1 || !ts.lifecycle.calls[0] {
		t.Fatalf("expected foreground=true recorded, got %v", ts.lifecycle.calls)
	}
}

func TestScanAcceptsSecondRead(t *testing.T) {
	ts := newTestServer(t)

	_, body := postJSON(t, ts.url+"/scan", `{"value":"CP01-1"}`)
	if body["accepted"] != false || body["pending_count"] != float64(1) {
		t.Fatalf("unexpected first response %v", body)
	}
	_, body = postJSON(t, ts.url+"/scan", `{"value":"CP01-1"}`)
	if body["accepted"] != true {
		t.Fatalf("expected accepted, got %v", body)
	}
	select {
	case v := <-ts.accepted:
		if v != "CP01-1" {
			t.Fatalf("expected CP01-1, got %q", v)
		}
	default:
		t.Fatalf("expected accept callback")
	}

	_, body = postJSON(t, ts.url+"/rescan", ``)
	if body["accepted"] != false {
		t.Fatalf("expected latch reset, got %v", body)
	}

	resp, _ := postJSON(t, ts.url+"/scan", `{"value":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty value, got %d", resp.StatusCode)
	}
}

func TestScanOutsideGuideIgnored(t *testing.T) {
	ts := newTestServer(t)
	box := `{"x":0,"y":0,"width":200,"height":200}`
	postJSON(t, ts.url+"/scan", `{"value":"CP01-1","box":`+box+`}`)
	_, body := postJSON(t, ts.url+"/scan", `{"value":"CP01-1","box":`+box+`}`)
	if body["accepted"] != false || body["pending_count"] != float64(0) {
		t.Fatalf("expected out-of-guide detections ignored, got %v", body)
	}
}

func TestStop(t *testing.T) {
	ts := newTestServer(t)

	ts.stopper.setErr(service.ErrNoActiveSession)
	resp, _ := postJSON(t, ts.url+"/stop", ``)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	ts.stopper.setErr(nil)
	resp, body := postJSON(t, ts.url+"/stop", ``)
	if resp.StatusCode != http.StatusOK || body["status"] != "stopped" {
		t.Fatalf("expected stopped, got %d %v", resp.StatusCode, body)
	}
}

func TestSessionAndDismiss(t *testing.T) {
	ts := newTestServer(t)
	_ = ts.store.StartSession("abc123")

	resp, err := http.Get(ts.url + "/session")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	defer resp.Body.Close()
	body := map[string]interface{}{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if body["session_id"] != "abc123" || body["minutes_remaining"] != float64(42) {
		t.Fatalf("unexpected session body %v", body)
	}
	if _, ok := body["charging_minutes"]; ok {
		t.Fatalf("expected unknown charging minutes omitted, got %v", body)
	}

	resp2, _ := postJSON(t, ts.url+"/dismiss", ``)
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp2.StatusCode)
	}
	ts.dismisser.mu.Lock()
	defer ts.dismisser.mu.Unlock()
	if ts.dismisser.calls != 1 {
		t.Fatalf("expected one dismiss, got %d", ts.dismisser.calls)
	}
}
