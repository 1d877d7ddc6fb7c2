// Package scan turns a jittery stream of camera code detections into at most
// one accepted value per scan session.
package scan

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"evmobile/internal/clock"
)

// Rect is an axis-aligned box in preview coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether inner fits entirely inside r shrunk by padding on every side.
func (r Rect) Contains(inner Rect, padding float64) bool {
	return inner.X >= r.X+padding &&
		inner.Y >= r.Y+padding &&
		inner.X+inner.Width <= r.X+r.Width-padding &&
		inner.Y+inner.Height <= r.Y+r.Height-padding
}

// Defaults.
const (
	DefaultWindow          = 1200 * time.Millisecond
	DefaultMinSizeRatio    = 0.25
	DefaultRequiredMatches = 2
)

// Config tunes the stabilizer.
type Config struct {
	Guide           Rect
	Padding         float64
	MinSizeRatio    float64
	Window          time.Duration
	RequiredMatches int
}

type candidate struct {
	value    string
	count    int
	lastSeen time.Time
}

// Stabilizer accepts a value only after it was read RequiredMatches times in a
// row, each read within Window of the previous, fully inside the guide region.
// Acceptance latches until Rescan.
type Stabilizer struct {
	cfg        Config
	clock      clock.Clock
	onAccepted func(value string)
	logger     *zap.Logger

	mu        sync.Mutex
	pending   *candidate
	sent      bool
	suspended bool
}

// NewStabilizer builds a stabilizer calling onAccepted once per scan session.
func NewStabilizer(cfg Config, clk clock.Clock, onAccepted func(string), logger *zap.Logger) *Stabilizer {
	if cfg.MinSizeRatio <= 0 {
		cfg.MinSizeRatio = DefaultMinSizeRatio
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.RequiredMatches <= 0 {
		cfg.RequiredMatches = DefaultRequiredMatches
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stabilizer{cfg: cfg, clock: clk, onAccepted: onAccepted, logger: logger}
}

// OnDetection processes one decoded frame.
func (s *Stabilizer) OnDetection(value string, box Rect) {
	if value == "" {
		return
	}

	s.mu.Lock()
	if s.sent || s.suspended {
		s.mu.Unlock()
		return
	}
	if !s.cfg.Guide.Contains(box, s.cfg.Padding) {
		// drifted out of the centered region
		s.pending = nil
		s.mu.Unlock()
		return
	}
	if box.Width < s.cfg.Guide.Width*s.cfg.MinSizeRatio || box.Height < s.cfg.Guide.Height*s.cfg.MinSizeRatio {
		s.mu.Unlock()
		return
	}

	now := s.clock.Now()
	if s.pending != nil && s.pending.value == value && now.Sub(s.pending.lastSeen) <= s.cfg.Window {
		s.pending.count++
		s.pending.lastSeen = now
	} else {
		s.pending = &candidate{value: value, count: 1, lastSeen: now}
	}

	if s.pending.count < s.cfg.RequiredMatches {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.sent = true
	s.mu.Unlock()

	s.logger.Info("scan accepted", zap.String("value", value))
	if s.onAccepted != nil {
		s.onAccepted(value)
	}
}

// Rescan clears the pending candidate and the accepted latch.
func (s *Stabilizer) Rescan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.sent = false
}

// SetSuspended gates detections off while the camera feed is inactive.
// Suspending drops the pending candidate but keeps the accepted latch.
func (s *Stabilizer) SetSuspended(suspended bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = suspended
	if suspended {
		s.pending = nil
	}
}

// Accepted reports whether a value was accepted since the last Rescan.
func (s *Stabilizer) Accepted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// Pending returns the current candidate value and its match count.
func (s *Stabilizer) Pending() (string, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return "", 0, false
	}
	return s.pending.value, s.pending.count, true
}
