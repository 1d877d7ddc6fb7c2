package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"evmobile/internal/models"
)

// Dispatcher turns socket lifecycle and inbound events into side effects on
// the engines and the navigator. Network work runs through async so the read
// pump is never blocked by a REST call.
type Dispatcher struct {
	store    *Store
	sessions *SessionSync
	poller   *TopupPoller
	wallet   WalletRefresher
	nav      Navigator
	logger   *zap.Logger

	async func(func())

	mu         sync.Mutex
	completed  map[string]struct{}
	order      []string
	lastPolled string
	observers  []TopupObserver
}

// maxCompletedTopups bounds the ids kept for duplicate suppression.
const maxCompletedTopups = 32

// NewDispatcher returns dispatcher. It registers itself with poller so a
// socket event for an already polled top-up does not navigate twice.
func NewDispatcher(store *Store, sessions *SessionSync, poller *TopupPoller, wallet WalletRefresher, nav Navigator, logger *zap.Logger) *Dispatcher {
	if nav == nil {
		nav = nopNavigator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		store:     store,
		sessions:  sessions,
		poller:    poller,
		wallet:    wallet,
		nav:       nav,
		logger:    logger,
		async:     func(f func()) { go f() },
		completed: make(map[string]struct{}),
	}
	if poller != nil {
		poller.AddObserver(d)
	}
	return d
}

// AddObserver registers an observer of top-ups confirmed by the socket.
func (d *Dispatcher) AddObserver(o TopupObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// OnOpen refreshes the known session to cover events missed while disconnected.
func (d *Dispatcher) OnOpen() {
	if id := d.store.SessionID(); id != "" {
		d.async(func() { d.sessions.Refresh(context.Background(), id) })
	}
}

// OnEvent dispatches one parsed frame.
func (d *Dispatcher) OnEvent(evt models.Event) {
	switch evt.Type {
	case models.EventWalletTopupSuccess:
		d.onTopupSuccess(evt)
	case models.EventStartCharging:
		d.nav.Navigate(RouteChargingDetail, d.chargingParams())
	case models.EventStopCharging:
		if d.store.Route() != RouteChargingResult {
			d.nav.Navigate(RouteChargingResult, d.chargingParams())
		}
	case models.EventMeterChange:
		d.onMeterChange(evt)
	default:
		d.logger.Debug("ignoring unknown event", zap.String("event_type", string(evt.Type)))
	}
}

// TopupCompleted records top-ups already confirmed by polling. The latest one
// also stands in for a socket event that omits its transaction id.
func (d *Dispatcher) TopupCompleted(_ context.Context, params PaymentSuccessParams) {
	if params.TransactionID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rememberLocked(params.TransactionID)
	d.lastPolled = params.TransactionID
}

// rememberLocked adds id to the completed set, dropping the oldest id once
// the set is full.
func (d *Dispatcher) rememberLocked(id string) {
	if _, ok := d.completed[id]; ok {
		return
	}
	d.completed[id] = struct{}{}
	d.order = append(d.order, id)
	if len(d.order) > maxCompletedTopups {
		delete(d.completed, d.order[0])
		d.order = d.order[1:]
	}
}

func (d *Dispatcher) onTopupSuccess(evt models.Event) {
	if d.poller != nil {
		d.poller.Supersede()
	}

	var data models.TopupEventData
	if err := evt.DecodeData(&data); err != nil {
		d.logger.Warn("failed to decode topup payload", zap.Error(err))
	}

	if d.wallet != nil {
		d.async(func() {
			ctx := context.Background()
			if err := d.wallet.Refresh(ctx); err != nil {
				d.logger.Debug("wallet refresh failed", zap.Error(err))
			}
			if err := d.wallet.RefreshTransactions(ctx); err != nil {
				d.logger.Debug("transactions refresh failed", zap.Error(err))
			}
		})
	}

	d.mu.Lock()
	txID := data.TransactionID
	if txID == "" {
		txID = d.lastPolled
	}
	if txID != "" && txID == d.lastPolled {
		// one event pairs with one polled approval
		d.lastPolled = ""
	}
	_, seen := d.completed[txID]
	if txID != "" {
		d.rememberLocked(txID)
	}
	observers := append([]TopupObserver(nil), d.observers...)
	d.mu.Unlock()
	if seen {
		d.logger.Debug("topup already shown", zap.String("transaction_id", txID))
		return
	}

	params := PaymentSuccessParams{Amount: data.Amount, TransactionID: txID, Date: data.Date}
	if params.TransactionID != "" {
		for _, o := range observers {
			d.async(func() { o.TopupCompleted(context.Background(), params) })
		}
	}
	d.nav.Navigate(RoutePaymentSuccess, params)
}

func (d *Dispatcher) onMeterChange(evt models.Event) {
	current := d.store.SessionID()
	if current == "" {
		return
	}
	var data models.SessionEventData
	if err := evt.DecodeData(&data); err != nil {
		d.logger.Warn("failed to decode meter payload", zap.Error(err))
	}
	if data.SessionID != "" && data.SessionID != current {
		return
	}
	d.async(func() { d.sessions.Refresh(context.Background(), current) })
}

func (d *Dispatcher) chargingParams() ChargingParams {
	params := ChargingParams{SessionID: d.store.SessionID()}
	if snap, ok := d.store.Snapshot(); ok {
		params.Snapshot = &snap
	}
	return params
}
