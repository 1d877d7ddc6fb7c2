package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"evmobile/internal/models"
)

// SessionFetcher reads session telemetry from the backend.
type SessionFetcher interface {
	ChargingSession(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)
}

// SnapshotObserver is told about every merged snapshot.
type SnapshotObserver interface {
	SnapshotMerged(ctx context.Context, snap models.SessionSnapshot)
}

// SessionObserver is told when a session stops being tracked.
type SessionObserver interface {
	SessionCleared(ctx context.Context, sessionID string)
}

// SessionSync reconciles telemetry from socket pushes, manual refreshes and
// foreground transitions into the store. Every trigger converges on Refresh,
// which keeps at most one fetch in flight and re-runs once if more requests
// arrived meanwhile.
type SessionSync struct {
	store   *Store
	fetcher SessionFetcher
	logger  *zap.Logger

	mu        sync.Mutex
	inflight  bool
	queued    string
	done      chan struct{}
	waiters   int
	observers []SnapshotObserver
	cleared   []SessionObserver
}

// NewSessionSync builds the engine and hooks it to session changes in store.
func NewSessionSync(store *Store, fetcher SessionFetcher, logger *zap.Logger) *SessionSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SessionSync{store: store, fetcher: fetcher, logger: logger}
	store.Watch(func(previous, current string) {
		if current == "" {
			s.teardown(previous)
		}
	})
	return s
}

// AddObserver registers a snapshot observer.
func (s *SessionSync) AddObserver(o SnapshotObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// AddSessionObserver registers an observer of session teardown.
func (s *SessionSync) AddSessionObserver(o SessionObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, o)
}

// Refresh fetches telemetry for sessionID and merges it. Failures leave the
// snapshot unchanged; the next trigger retries. A call that overlaps a fetch
// in flight queues one re-run and returns once that re-run has merged, or when
// ctx is done.
func (s *SessionSync) Refresh(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}

	s.mu.Lock()
	if s.inflight {
		s.queued = sessionID
		done := s.done
		s.waiters++
		s.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
		}
		s.mu.Lock()
		s.waiters--
		s.mu.Unlock()
		return
	}
	s.inflight = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	for {
		s.fetchAndMerge(ctx, sessionID)

		s.mu.Lock()
		if s.queued == "" {
			s.inflight = false
			close(s.done)
			s.done = nil
			s.mu.Unlock()
			return
		}
		sessionID = s.queued
		s.queued = ""
		s.mu.Unlock()
	}
}

// OnForeground refreshes when the app returns to the foreground with a session active.
func (s *SessionSync) OnForeground(ctx context.Context) {
	if id := s.store.SessionID(); id != "" {
		s.logger.Debug("foreground refresh", zap.String("session_id", id))
		s.Refresh(ctx, id)
	}
}

func (s *SessionSync) fetchAndMerge(ctx context.Context, sessionID string) {
	if s.store.SessionID() != sessionID {
		return
	}

	resp, err := s.fetcher.ChargingSession(ctx, sessionID)
	if err != nil {
		s.logger.Debug("session refresh failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if resp == nil {
		return
	}
	if resp.SessionID != "" && resp.SessionID != sessionID {
		s.logger.Warn("ignoring telemetry for another session",
			zap.String("session_id", sessionID),
			zap.String("payload_session_id", resp.SessionID),
		)
		return
	}

	merged, ok := s.store.UpdateSnapshot(sessionID, func(prev models.SessionSnapshot) models.SessionSnapshot {
		return MergeSnapshot(prev, *resp)
	})
	if !ok {
		return
	}

	s.mu.Lock()
	observers := append([]SnapshotObserver(nil), s.observers...)
	s.mu.Unlock()
	for _, o := range observers {
		o.SnapshotMerged(ctx, merged)
	}
}

// MinutesRemaining returns the last non-null minutes remaining of the active session.
func (s *SessionSync) MinutesRemaining() (int64, bool) {
	snap, ok := s.store.Snapshot()
	if !ok || !snap.MinutesRemaining.Valid {
		return 0, false
	}
	return snap.MinutesRemaining.Int64, true
}

// ChargingMinutes returns the last non-null elapsed charging minutes of the active session.
func (s *SessionSync) ChargingMinutes() (int64, bool) {
	snap, ok := s.store.Snapshot()
	if !ok || !snap.ChargingMinutes.Valid {
		return 0, false
	}
	return snap.ChargingMinutes.Int64, true
}

// teardown runs after the store dropped the session; the snapshot and its
// sticky values went with it, so only queued work and observers remain.
func (s *SessionSync) teardown(sessionID string) {
	s.mu.Lock()
	if s.queued == sessionID {
		s.queued = ""
	}
	cleared := append([]SessionObserver(nil), s.cleared...)
	s.mu.Unlock()

	s.logger.Info("session cleared", zap.String("session_id", sessionID))
	for _, o := range cleared {
		o.SessionCleared(context.Background(), sessionID)
	}
}
