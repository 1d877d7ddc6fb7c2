package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"evmobile/internal/models"
	"evmobile/internal/service"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const schema = `
	CREATE TABLE IF NOT EXISTS session_snapshots (
		id BIGSERIAL PRIMARY KEY,
		device_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		status TEXT NOT NULL,
		energy_kwh DOUBLE PRECISION,
		soc_percent BIGINT,
		minutes_remaining BIGINT,
		price DOUBLE PRECISION,
		recorded_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS topups (
		transaction_id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		paid_at TEXT,
		recorded_at TIMESTAMPTZ NOT NULL
	);
`

// JournalRepository appends merged telemetry and completed top-ups.
type JournalRepository struct {
	db       DBTX
	deviceID string
	now      func() time.Time
	logger   *zap.Logger
}

// NewJournalRepository ctor.
func NewJournalRepository(db DBTX, deviceID string, logger *zap.Logger) *JournalRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalRepository{db: db, deviceID: deviceID, now: time.Now, logger: logger}
}

// EnsureSchema creates the journal tables.
func (r *JournalRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// RecordSnapshot appends one merged snapshot.
func (r *JournalRepository) RecordSnapshot(ctx context.Context, snap models.SessionSnapshot) error {
	if snap.SessionID == "" {
		return errors.New("repository: session id is required")
	}
	const query = `
		INSERT INTO session_snapshots (device_id, session_id, status, energy_kwh, soc_percent, minutes_remaining, price, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		r.deviceID,
		snap.SessionID,
		string(snap.Status),
		snap.EnergyKWh,
		snap.SOCPercent,
		snap.MinutesRemaining,
		snap.PriceAccrued,
		r.now().UTC(),
	)
	return err
}

// RecordTopup stores a completed top-up once.
func (r *JournalRepository) RecordTopup(ctx context.Context, params service.PaymentSuccessParams) error {
	if params.TransactionID == "" {
		return errors.New("repository: transaction id is required")
	}
	const query = `
		INSERT INTO topups (transaction_id, device_id, amount, paid_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (transaction_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, params.TransactionID, r.deviceID, params.Amount, params.Date, r.now().UTC())
	return err
}

// SnapshotMerged journals every merge.
func (r *JournalRepository) SnapshotMerged(ctx context.Context, snap models.SessionSnapshot) {
	if err := r.RecordSnapshot(ctx, snap); err != nil {
		r.logger.Warn("snapshot journal write failed", zap.String("session_id", snap.SessionID), zap.Error(err))
	}
}

// TopupCompleted journals a top-up confirmed by polling.
func (r *JournalRepository) TopupCompleted(ctx context.Context, params service.PaymentSuccessParams) {
	if err := r.RecordTopup(ctx, params); err != nil {
		r.logger.Warn("topup journal write failed", zap.String("transaction_id", params.TransactionID), zap.Error(err))
	}
}
