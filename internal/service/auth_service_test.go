package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"evmobile/internal/models"
)

type fakeAuthAPI struct {
	mu        sync.Mutex
	token     string
	logoutErr error
	logouts   int
}

func (f *fakeAuthAPI) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{AccessToken: f.token, RefreshToken: "refresh"}, nil
}

func (f *fakeAuthAPI) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return f.logoutErr
}

func (f *fakeAuthAPI) ExistPhoneNumber(ctx context.Context, phone string) (bool, error) {
	return phone == "0900000000", nil
}

func (f *fakeAuthAPI) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{AccessToken: f.token}, nil
}

type fakeCredentials struct {
	access  string
	refresh string
	cleared int
}

func (f *fakeCredentials) Save(accessToken, refreshToken string) error {
	f.access, f.refresh = accessToken, refreshToken
	return nil
}

func (f *fakeCredentials) Clear() error {
	f.access, f.refresh = "", ""
	f.cleared++
	return nil
}

func TestLoginStoresCredentialAndConnects(t *testing.T) {
	store := NewStore()
	creds := &fakeCredentials{}
	socket := &fakeSocket{}
	auth := NewAuthService(&fakeAuthAPI{token: "jwt"}, nil, creds, socket, store, nil, nil)

	if _, err := auth.Login(context.Background(), "0900000000", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if creds.access != "jwt" || creds.refresh != "refresh" {
		t.Fatalf("expected credential saved, got %+v", creds)
	}
	if !store.Authenticated() {
		t.Fatalf("expected auth flag set")
	}
	if socket.connects != 1 {
		t.Fatalf("expected socket connect, got %d", socket.connects)
	}
}

func TestLoginWithoutToken(t *testing.T) {
	store := NewStore()
	auth := NewAuthService(&fakeAuthAPI{}, nil, &fakeCredentials{}, &fakeSocket{}, store, nil, nil)

	if _, err := auth.Login(context.Background(), "0900000000", "secret"); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
	if store.Authenticated() {
		t.Fatalf("expected auth flag unset")
	}
}

func TestLogoutClearsLocalStateOnEndpointFailure(t *testing.T) {
	store := NewStore()
	creds := &fakeCredentials{access: "jwt"}
	socket := &fakeSocket{connected: true}
	p, _, _, _ := newTestPoller(&fakeVerifier{})
	api := &fakeAuthAPI{logoutErr: errFakeNetwork}
	auth := NewAuthService(api, nil, creds, socket, store, p, nil)

	store.SetAuthenticated(true)
	_ = store.StartSession("s-1")
	p.StartPolling(context.Background(), "tx-1")

	if err := auth.Logout(context.Background()); !errors.Is(err, errFakeNetwork) {
		t.Fatalf("expected endpoint error returned, got %v", err)
	}
	if creds.cleared != 1 || creds.access != "" {
		t.Fatalf("expected credentials cleared")
	}
	if socket.closes != 1 {
		t.Fatalf("expected socket closed, got %d", socket.closes)
	}
	if p.Active() {
		t.Fatalf("expected polling stopped")
	}
	state := store.State()
	if state.Authenticated || state.SessionID != "" {
		t.Fatalf("expected store reset, got %+v", state)
	}
}

func TestWalletServiceReplacesBalance(t *testing.T) {
	store := NewStore()
	api := &fakeWalletAPI{balance: 12.5}
	wallet := NewWalletService(api, store, nil)

	store.SetWallet(models.WalletBalance{Amount: 999})
	if err := wallet.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	balance, ok := store.Wallet()
	if !ok || balance.Amount != 12.5 {
		t.Fatalf("expected balance 12.5, got %+v", balance)
	}

	if err := wallet.RefreshTransactions(context.Background()); err != nil {
		t.Fatalf("refresh transactions: %v", err)
	}
	if api.pageSize != DefaultHistoryPageSize || len(store.State().Transactions) != 1 {
		t.Fatalf("expected first page cached, got size %d", api.pageSize)
	}

	api.err = errFakeNetwork
	if err := wallet.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if balance, _ := store.Wallet(); balance.Amount != 12.5 {
		t.Fatalf("expected balance unchanged on failure, got %v", balance.Amount)
	}
}
