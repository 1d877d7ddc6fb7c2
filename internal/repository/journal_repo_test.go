package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/guregu/null.v4"

	"evmobile/internal/models"
	"evmobile/internal/service"
)

type execCall struct {
	query string
	args  []interface{}
}

type fakeDB struct {
	calls []execCall
	err   error
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.calls = append(f.calls, execCall{query: query, args: args})
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func newTestRepo(db *fakeDB) *JournalRepository {
	r := NewJournalRepository(db, "dev-1", nil)
	r.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return r
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := newTestRepo(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if len(db.calls) != 1 || !strings.Contains(db.calls[0].query, "session_snapshots") || !strings.Contains(db.calls[0].query, "topups") {
		t.Fatalf("unexpected schema statement %+v", db.calls)
	}
}

func TestRecordSnapshot(t *testing.T) {
	db := &fakeDB{}
	repo := newTestRepo(db)

	snap := models.SessionSnapshot{SessionID: "abc123", Status: models.SessionStatusCharging, EnergyKWh: null.FloatFrom(1.25)}
	if err := repo.RecordSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(db.calls) != 1 {
		t.Fatalf("expected one insert, got %d", len(db.calls))
	}
	args := db.calls[0].args
	if args[0] != "dev-1" || args[1] != "abc123" || args[2] != "CHARGING" {
		t.Fatalf("unexpected args %v", args)
	}
	if energy := args[3].(null.Float); energy.Float64 != 1.25 {
		t.Fatalf("expected energy 1.25, got %v", energy)
	}

	if err := repo.RecordSnapshot(context.Background(), models.SessionSnapshot{}); err == nil {
		t.Fatalf("expected error for snapshot without id")
	}
}

func TestRecordTopupIsIdempotent(t *testing.T) {
	db := &fakeDB{}
	repo := newTestRepo(db)

	repo.TopupCompleted(context.Background(), service.PaymentSuccessParams{Amount: 20, TransactionID: "tx-1", Date: "2024-05-01"})
	if len(db.calls) != 1 || !strings.Contains(db.calls[0].query, "ON CONFLICT (transaction_id) DO NOTHING") {
		t.Fatalf("unexpected statement %+v", db.calls)
	}
	if db.calls[0].args[2] != 20.0 {
		t.Fatalf("expected amount 20, got %v", db.calls[0].args[2])
	}
}

func TestObserverHooksSwallowErrors(t *testing.T) {
	db := &fakeDB{err: errors.New("db down")}
	repo := newTestRepo(db)

	repo.SnapshotMerged(context.Background(), models.SessionSnapshot{SessionID: "abc123"})
	repo.TopupCompleted(context.Background(), service.PaymentSuccessParams{TransactionID: "tx-1"})
	if len(db.calls) != 2 {
		t.Fatalf("expected both writes attempted, got %d", len(db.calls))
	}
}
