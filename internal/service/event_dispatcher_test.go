package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"evmobile/internal/clock"
	"evmobile/internal/models"
)

type dispatcherFixture struct {
	store    *Store
	fetcher  *fakeFetcher
	verifier *fakeVerifier
	clock    *clock.Manual
	poller   *TopupPoller
	wallet   *fakeRefresher
	nav      *recordingNavigator
	d        *Dispatcher
}

func newDispatcherFixture() *dispatcherFixture {
	f := &dispatcherFixture{
		store:    NewStore(),
		fetcher:  &fakeFetcher{},
		verifier: &fakeVerifier{},
		clock:    clock.NewManual(time.Unix(1700000000, 0)),
		wallet:   &fakeRefresher{},
		nav:      &recordingNavigator{},
	}
	sessions := NewSessionSync(f.store, f.fetcher, nil)
	f.poller = NewTopupPoller(PollerConfig{}, f.clock, f.verifier, f.wallet, f.nav, nil)
	f.d = NewDispatcher(f.store, sessions, f.poller, f.wallet, f.nav, nil)
	f.d.async = func(fn func()) { fn() }
	return f
}

func topupEvent(txID string, amount float64) models.Event {
	return models.Event{
		Type: models.EventWalletTopupSuccess,
		Data: []byte(fmt.Sprintf(`{"transaction_id":%q,"amount":%.2f,"date":"2024-05-01"}`, txID, amount)),
	}
}

func TestTopupEventSupersedesPolling(t *testing.T) {
	f := newDispatcherFixture()
	f.poller.StartPolling(context.Background(), "tx-9")

	f.d.OnEvent(topupEvent("tx-9", 20))

	if f.poller.Active() {
		t.Fatalf("expected polling stopped by the socket event")
	}
	f.clock.Advance(time.Minute)
	if f.verifier.callCount() != 1 {
		t.Fatalf("expected no checks after the event, got %d", f.verifier.callCount())
	}

	refreshes, txs := f.wallet.counts()
	if refreshes != 1 || txs != 1 {
		t.Fatalf("expected wallet and history refetch, got %d/%d", refreshes, txs)
	}
	navs := f.nav.all()
	if len(navs) != 1 || navs[0].route != RoutePaymentSuccess {
		t.Fatalf("expected one payment-success navigation, got %+v", navs)
	}
	params := navs[0].params.(PaymentSuccessParams)
	if params.Amount != 20 || params.TransactionID != "tx-9" || params.Date != "2024-05-01" {
		t.Fatalf("unexpected params %+v", params)
	}
}

func TestTopupEventAfterPollingApprovalDoesNotNavigateTwice(t *testing.T) {
	f := newDispatcherFixture()
	f.verifier.statuses = []string{"APPROVED"}
	f.verifier.amount = 20

	f.poller.StartPolling(context.Background(), "tx-1")
	f.d.OnEvent(topupEvent("tx-1", 20))

	if got := f.nav.count(RoutePaymentSuccess); got != 1 {
		t.Fatalf("expected exactly one payment-success navigation, got %d", got)
	}
}

func TestTopupEventWithoutIDAfterPollingApproval(t *testing.T) {
	f := newDispatcherFixture()
	f.verifier.statuses = []string{"APPROVED"}
	f.verifier.amount = 20

	f.poller.StartPolling(context.Background(), "tx-1")
	f.d.OnEvent(topupEvent("", 20))

	if got := f.nav.count(RoutePaymentSuccess); got != 1 {
		t.Fatalf("expected exactly one payment-success navigation, got %d", got)
	}

	f.d.OnEvent(topupEvent("", 5))
	if got := f.nav.count(RoutePaymentSuccess); got != 2 {
		t.Fatalf("expected a later top-up without id to navigate, got %d", got)
	}
}

func TestCompletedTopupsBounded(t *testing.T) {
	f := newDispatcherFixture()

	for i := 0; i < maxCompletedTopups+8; i++ {
		f.d.OnEvent(topupEvent(fmt.Sprintf("tx-%d", i), 1))
	}
	f.d.mu.Lock()
	size, kept := len(f.d.completed), len(f.d.order)
	_, oldest := f.d.completed["tx-0"]
	_, newest := f.d.completed[fmt.Sprintf("tx-%d", maxCompletedTopups+7)]
	f.d.mu.Unlock()

	if size != maxCompletedTopups || kept != maxCompletedTopups {
		t.Fatalf("expected %d remembered top-ups, got %d/%d", maxCompletedTopups, size, kept)
	}
	if oldest || !newest {
		t.Fatalf("expected oldest dropped and newest kept")
	}
	if got := f.nav.count(RoutePaymentSuccess); got != maxCompletedTopups+8 {
		t.Fatalf("expected one navigation per top-up, got %d", got)
	}
}

func TestTopupEventWithoutPolling(t *testing.T) {
	f := newDispatcherFixture()

	f.d.OnEvent(topupEvent("tx-ext", 0))

	if f.nav.count(RoutePaymentSuccess) != 1 {
		t.Fatalf("expected payment-success navigation, got %+v", f.nav.all())
	}
	if refreshes, _ := f.wallet.counts(); refreshes != 1 {
		t.Fatalf("expected wallet refetch, got %d", refreshes)
	}
}

func TestChargingEventsNavigate(t *testing.T) {
	f := newDispatcherFixture()
	_ = f.store.StartSession("s-1")

	f.d.OnEvent(models.Event{Type: models.EventStartCharging})
	f.d.OnEvent(models.Event{Type: models.EventStopCharging})

	navs := f.nav.all()
	if len(navs) != 2 || navs[0].route != RouteChargingDetail || navs[1].route != RouteChargingResult {
		t.Fatalf("unexpected navigations %+v", navs)
	}
	if params := navs[1].params.(ChargingParams); params.SessionID != "s-1" {
		t.Fatalf("expected params for s-1, got %+v", params)
	}

	f.store.SetRoute(RouteChargingResult)
	f.d.OnEvent(models.Event{Type: models.EventStopCharging})
	if f.nav.count(RouteChargingResult) != 1 {
		t.Fatalf("expected no repeated result navigation")
	}
}

func TestMeterChangeForOtherSessionIgnored(t *testing.T) {
	f := newDispatcherFixture()

	f.d.OnEvent(models.Event{Type: models.EventMeterChange})
	if f.fetcher.callCount() != 0 {
		t.Fatalf("expected no fetch without a session")
	}

	_ = f.store.StartSession("s-1")
	f.d.OnEvent(models.Event{Type: models.EventMeterChange, Data: []byte(`{"session_id":"s-0"}`)})
	if f.fetcher.callCount() != 0 {
		t.Fatalf("expected no fetch for a stale session")
	}

	f.d.OnEvent(models.Event{Type: models.EventMeterChange})
	if f.fetcher.callCount() != 1 {
		t.Fatalf("expected fetch for current session, got %d", f.fetcher.callCount())
	}
}

func TestOnOpenRefreshesKnownSession(t *testing.T) {
	f := newDispatcherFixture()

	f.d.OnOpen()
	if f.fetcher.callCount() != 0 {
		t.Fatalf("expected no fetch without a session")
	}

	_ = f.store.StartSession("s-1")
	f.d.OnOpen()
	if f.fetcher.callCount() != 1 {
		t.Fatalf("expected reconnect refresh, got %d", f.fetcher.callCount())
	}
}
