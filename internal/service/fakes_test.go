package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"evmobile/internal/models"
)

var errFakeNetwork = errors.New("fake: network down")

type fakeFetcher struct {
	mu        sync.Mutex
	calls     []string
	responses []*models.SessionSnapshot
	err       error
	block     chan struct{}
}

func (f *fakeFetcher) ChargingSession(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sessionID)
	idx := len(f.calls) - 1
	block := f.block
	err := f.err
	var resp *models.SessionSnapshot
	if len(f.responses) > 0 {
		if idx >= len(f.responses) {
			idx = len(f.responses) - 1
		}
		resp = f.responses[idx]
	}
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &models.SessionSnapshot{SessionID: sessionID}, nil
	}
	cp := *resp
	return &cp, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeVerifier struct {
	mu       sync.Mutex
	calls    []string
	statuses []string
	amount   float64
	err      error
	onVerify func()
}

func (f *fakeVerifier) Verify(ctx context.Context, transactionID string) (*models.VerifyResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, transactionID)
	idx := len(f.calls) - 1
	status := "PENDING"
	if len(f.statuses) > 0 {
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		status = f.statuses[idx]
	}
	err := f.err
	amount := f.amount
	hook := f.onVerify
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return &models.VerifyResponse{Status: status, Amount: amount, TransactionID: transactionID, Date: "2024-05-01"}, nil
}

func (f *fakeVerifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRefresher struct {
	mu           sync.Mutex
	refreshes    int
	transactions int
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil
}

func (f *fakeRefresher) RefreshTransactions(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions++
	return nil
}

func (f *fakeRefresher) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes, f.transactions
}

type fakeWalletAPI struct {
	mu       sync.Mutex
	balance  float64
	err      error
	topups   []float64
	topupTx  string
	pageSize int
}

func (f *fakeWalletAPI) Balance(ctx context.Context) (*models.WalletBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &models.WalletBalance{Amount: f.balance, Currency: "VND"}, nil
}

func (f *fakeWalletAPI) Transactions(ctx context.Context, page, size int) (*models.Page[models.WalletTransaction], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageSize = size
	return &models.Page[models.WalletTransaction]{Items: []models.WalletTransaction{{ID: "t-1"}}, Page: page, Size: size, Total: 1}, nil
}

func (f *fakeWalletAPI) Topup(ctx context.Context, amount float64) (*models.TopupResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topups = append(f.topups, amount)
	return &models.TopupResponse{TransactionID: f.topupTx}, nil
}

type fakeChargerAPI struct {
	mu         sync.Mutex
	startResp  *models.RemoteStartResponse
	startErr   error
	starts     []models.RemoteStartRequest
	stops      []models.RemoteStopRequest
	stopErr    error
	historyReq []models.ChargingHistoryRequest
}

func (f *fakeChargerAPI) RemoteStart(ctx context.Context, req models.RemoteStartRequest) (*models.RemoteStartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, req)
	if f.startErr != nil {
		return nil, f.startErr
	}
	resp := *f.startResp
	return &resp, nil
}

func (f *fakeChargerAPI) RemoteStop(ctx context.Context, req models.RemoteStopRequest) (*models.RemoteStopResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, req)
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return &models.RemoteStopResponse{Status: "Accepted"}, nil
}

func (f *fakeChargerAPI) ChargingHistory(ctx context.Context, req models.ChargingHistoryRequest) (*models.Page[models.ChargingHistoryItem], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyReq = append(f.historyReq, req)
	return &models.Page[models.ChargingHistoryItem]{Page: req.Page, Size: req.Size}, nil
}

type fakeSocket struct {
	mu         sync.Mutex
	connected  bool
	subscribed []string
	connects   int
	closes     int
}

func (f *fakeSocket) Subscribe(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, sessionID)
}

func (f *fakeSocket) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSocket) Connect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.connected = true
}

func (f *fakeSocket) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.connected = false
}

type navigation struct {
	route  Route
	params interface{}
}

type recordingNavigator struct {
	mu   sync.Mutex
	navs []navigation
}

func (r *recordingNavigator) Navigate(route Route, params interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navs = append(r.navs, navigation{route: route, params: params})
}

func (r *recordingNavigator) all() []navigation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]navigation(nil), r.navs...)
}

func (r *recordingNavigator) count(route Route) int {
	n := 0
	for _, nav := range r.all() {
		if nav.route == route {
			n++
		}
	}
	return n
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []string
}

func (r *recordingNotifier) Toast(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, message)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.toasts)
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
