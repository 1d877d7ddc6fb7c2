package service

import (
	"errors"
	"sync"

	"gopkg.in/guregu/null.v4"

	"evmobile/internal/models"
)

// ErrSessionInProgress is returned when a different session is already tracked.
var ErrSessionInProgress = errors.New("service: another session is in progress")

// AppState is a copy of the store contents.
type AppState struct {
	Authenticated bool                       `json:"authenticated"`
	SessionID     string                     `json:"session_id,omitempty"`
	Snapshot      *models.SessionSnapshot    `json:"snapshot,omitempty"`
	Wallet        *models.WalletBalance      `json:"wallet,omitempty"`
	Transactions  []models.WalletTransaction `json:"transactions,omitempty"`
	Route         Route                      `json:"route,omitempty"`
}

// SessionWatcher is notified after the tracked session id changes.
type SessionWatcher func(previous, current string)

// Store holds process-wide client state: the active session and its snapshot,
// the wallet balance and the auth flag. Components read freely; only the
// reconciliation engine writes the snapshot and only the wallet service writes
// the balance.
type Store struct {
	mu           sync.RWMutex
	sessionID    string
	snapshot     *models.SessionSnapshot
	wallet       *models.WalletBalance
	transactions []models.WalletTransaction
	auth         bool
	route        Route
	watchers     []SessionWatcher
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Watch registers fn for session id changes.
func (s *Store) Watch(fn SessionWatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// SessionID returns the tracked session id, empty when idle.
func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// StartSession tracks id. The id is immutable until ClearSession.
func (s *Store) StartSession(id string) error {
	if id == "" {
		return errors.New("service: empty session id")
	}
	s.mu.Lock()
	if s.sessionID == id {
		s.mu.Unlock()
		return nil
	}
	if s.sessionID != "" {
		s.mu.Unlock()
		return ErrSessionInProgress
	}
	s.sessionID = id
	s.snapshot = &models.SessionSnapshot{SessionID: id, Status: models.SessionStatusSent, EnergyKWh: null.FloatFrom(0)}
	watchers := append([]SessionWatcher(nil), s.watchers...)
	s.mu.Unlock()

	for _, w := range watchers {
		w("", id)
	}
	return nil
}

// ClearSession forgets the session and its snapshot.
func (s *Store) ClearSession() {
	s.mu.Lock()
	prev := s.sessionID
	s.sessionID = ""
	s.snapshot = nil
	watchers := append([]SessionWatcher(nil), s.watchers...)
	s.mu.Unlock()

	if prev == "" {
		return
	}
	for _, w := range watchers {
		w(prev, "")
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() (models.SessionSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return models.SessionSnapshot{}, false
	}
	return *s.snapshot, true
}

// UpdateSnapshot applies fn to the snapshot of session id. It is a no-op,
// returning false, when id is no longer the tracked session.
func (s *Store) UpdateSnapshot(id string, fn func(prev models.SessionSnapshot) models.SessionSnapshot) (models.SessionSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" || s.sessionID != id {
		return models.SessionSnapshot{}, false
	}
	prev := models.SessionSnapshot{SessionID: id}
	if s.snapshot != nil {
		prev = *s.snapshot
	}
	next := fn(prev)
	next.SessionID = id
	s.snapshot = &next
	return next, true
}

// Wallet returns the last fetched balance.
func (s *Store) Wallet() (models.WalletBalance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallet == nil {
		return models.WalletBalance{}, false
	}
	return *s.wallet, true
}

// SetWallet replaces the balance.
func (s *Store) SetWallet(w models.WalletBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = &w
}

// SetTransactions replaces the cached first page of wallet history.
func (s *Store) SetTransactions(items []models.WalletTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append([]models.WalletTransaction(nil), items...)
}

// Authenticated reports the auth flag.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

// SetAuthenticated flips the auth flag.
func (s *Store) SetAuthenticated(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = v
}

// Route returns the last recorded view.
func (s *Store) Route() Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.route
}

// SetRoute records the visible view.
func (s *Store) SetRoute(r Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = r
}

// Reset drops everything, used on logout.
func (s *Store) Reset() {
	s.ClearSession()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = nil
	s.transactions = nil
	s.auth = false
	s.route = ""
}

// State returns a copy of the whole store.
func (s *Store) State() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := AppState{
		Authenticated: s.auth,
		SessionID:     s.sessionID,
		Transactions:  append([]models.WalletTransaction(nil), s.transactions...),
		Route:         s.route,
	}
	if s.snapshot != nil {
		snap := *s.snapshot
		state.Snapshot = &snap
	}
	if s.wallet != nil {
		w := *s.wallet
		state.Wallet = &w
	}
	return state
}
