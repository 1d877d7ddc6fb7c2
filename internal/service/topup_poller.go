package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"evmobile/internal/clock"
	"evmobile/internal/models"
)

// Polling defaults.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollTimeout  = 5 * time.Minute
)

// TopupVerifier checks the status of a top-up.
type TopupVerifier interface {
	Verify(ctx context.Context, transactionID string) (*models.VerifyResponse, error)
}

// WalletRefresher reloads wallet data after a payment.
type WalletRefresher interface {
	Refresh(ctx context.Context) error
	RefreshTransactions(ctx context.Context) error
}

// TopupObserver is told about every completed top-up.
type TopupObserver interface {
	TopupCompleted(ctx context.Context, params PaymentSuccessParams)
}

// PollerConfig tunes the schedule.
type PollerConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// TopupPoller polls the verification endpoint after a top-up until it is
// approved, superseded by a socket event, stopped, or times out. At most one
// schedule exists; starting a new one stops the previous one first.
type TopupPoller struct {
	cfg      PollerConfig
	clock    clock.Clock
	verifier TopupVerifier
	wallet   WalletRefresher
	nav      Navigator
	logger   *zap.Logger

	mu        sync.Mutex
	txID      string
	gen       uint64
	ctx       context.Context
	cancel    context.CancelFunc
	interval  clock.Timer
	timeout   clock.Timer
	observers []TopupObserver
}

// NewTopupPoller builds the polling engine.
func NewTopupPoller(cfg PollerConfig, clk clock.Clock, verifier TopupVerifier, wallet WalletRefresher, nav Navigator, logger *zap.Logger) *TopupPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPollTimeout
	}
	if clk == nil {
		clk = clock.New()
	}
	if nav == nil {
		nav = nopNavigator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopupPoller{cfg: cfg, clock: clk, verifier: verifier, wallet: wallet, nav: nav, logger: logger}
}

// AddObserver registers a completion observer.
func (p *TopupPoller) AddObserver(o TopupObserver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

// StartPolling stops any prior schedule, checks once immediately and then on
// every interval until the hard timeout.
func (p *TopupPoller) StartPolling(ctx context.Context, transactionID string) {
	if transactionID == "" {
		return
	}

	p.mu.Lock()
	p.stopLocked()
	p.gen++
	gen := p.gen
	p.txID = transactionID
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.timeout = p.clock.AfterFunc(p.cfg.Timeout, func() { p.expire(gen) })
	p.interval = p.clock.AfterFunc(p.cfg.Interval, func() { p.tick(gen) })
	p.mu.Unlock()

	p.logger.Info("topup polling started", zap.String("transaction_id", transactionID))
	p.check(gen)
}

// StopPolling clears both timers and the tracked transaction. Safe when idle.
func (p *TopupPoller) StopPolling() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// CheckNow runs an out-of-band check without touching the schedule.
func (p *TopupPoller) CheckNow() {
	p.mu.Lock()
	gen := p.gen
	active := p.txID != ""
	p.mu.Unlock()
	if active {
		p.check(gen)
	}
}

// Supersede stops an active schedule because the socket already reported the
// payment. It reports whether a schedule was stopped.
func (p *TopupPoller) Supersede() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.txID == "" {
		return false
	}
	p.logger.Info("topup polling superseded by socket event", zap.String("transaction_id", p.txID))
	p.stopLocked()
	return true
}

// Active reports whether a schedule is running.
func (p *TopupPoller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.txID != ""
}

// TransactionID returns the tracked transaction, empty when idle.
func (p *TopupPoller) TransactionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.txID
}

func (p *TopupPoller) stopLocked() {
	if p.interval != nil {
		p.interval.Stop()
		p.interval = nil
	}
	if p.timeout != nil {
		p.timeout.Stop()
		p.timeout = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.txID != "" {
		p.gen++
	}
	p.txID = ""
}

func (p *TopupPoller) tick(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.txID == "" {
		p.mu.Unlock()
		return
	}
	p.interval = p.clock.AfterFunc(p.cfg.Interval, func() { p.tick(gen) })
	p.mu.Unlock()

	p.check(gen)
}

func (p *TopupPoller) expire(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}
	p.logger.Info("topup polling timed out", zap.String("transaction_id", p.txID))
	p.timeout = nil
	p.stopLocked()
}

func (p *TopupPoller) check(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.txID == "" {
		p.mu.Unlock()
		return
	}
	txID, ctx := p.txID, p.ctx
	p.mu.Unlock()

	resp, err := p.verifier.Verify(ctx, txID)
	if err != nil {
		p.logger.Debug("topup verify failed", zap.String("transaction_id", txID), zap.Error(err))
		return
	}
	if resp == nil || !resp.Approved() {
		return
	}

	p.mu.Lock()
	if gen != p.gen {
		// stopped or superseded while the request was in flight
		p.mu.Unlock()
		return
	}
	p.stopLocked()
	observers := append([]TopupObserver(nil), p.observers...)
	p.mu.Unlock()

	params := PaymentSuccessParams{Amount: resp.Amount, TransactionID: resp.TransactionID, Date: resp.Date}
	if params.TransactionID == "" {
		params.TransactionID = txID
	}
	p.logger.Info("topup approved", zap.String("transaction_id", txID), zap.Float64("amount", resp.Amount))

	after := context.WithoutCancel(ctx)
	if p.wallet != nil {
		if err := p.wallet.Refresh(after); err != nil {
			p.logger.Debug("wallet refresh failed", zap.Error(err))
		}
		if err := p.wallet.RefreshTransactions(after); err != nil {
			p.logger.Debug("transactions refresh failed", zap.Error(err))
		}
	}
	for _, o := range observers {
		o.TopupCompleted(after, params)
	}
	p.nav.Navigate(RoutePaymentSuccess, params)
}
