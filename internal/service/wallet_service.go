package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"evmobile/internal/models"
)

// WalletAPI is the wallet part of the REST surface.
type WalletAPI interface {
	Balance(ctx context.Context) (*models.WalletBalance, error)
	Transactions(ctx context.Context, page, size int) (*models.Page[models.WalletTransaction], error)
	Topup(ctx context.Context, amount float64) (*models.TopupResponse, error)
}

// DefaultHistoryPageSize is the page size used when refreshing wallet history.
const DefaultHistoryPageSize = 20

// WalletService is the single writer of the wallet balance in the store. The
// balance is never computed locally, only replaced from the endpoint.
type WalletService struct {
	api    WalletAPI
	store  *Store
	logger *zap.Logger
}

// NewWalletService returns service.
func NewWalletService(api WalletAPI, store *Store, logger *zap.Logger) *WalletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletService{api: api, store: store, logger: logger}
}

// Refresh replaces the stored balance with a fresh fetch.
func (s *WalletService) Refresh(ctx context.Context) error {
	balance, err := s.api.Balance(ctx)
	if err != nil {
		return err
	}
	s.store.SetWallet(*balance)
	return nil
}

// RefreshTransactions reloads the first page of wallet history.
func (s *WalletService) RefreshTransactions(ctx context.Context) error {
	page, err := s.api.Transactions(ctx, 1, DefaultHistoryPageSize)
	if err != nil {
		return err
	}
	s.store.SetTransactions(page.Items)
	return nil
}

// Transactions returns a page of wallet history without caching it.
func (s *WalletService) Transactions(ctx context.Context, page, size int) (*models.Page[models.WalletTransaction], error) {
	return s.api.Transactions(ctx, page, size)
}

// ErrInvalidAmount is returned for non-positive top-up amounts.
var ErrInvalidAmount = errors.New("service: top-up amount must be positive")

// PaymentService initiates top-ups and hands them to the poller.
type PaymentService struct {
	api    WalletAPI
	poller *TopupPoller
	logger *zap.Logger
}

// NewPaymentService returns service.
func NewPaymentService(api WalletAPI, poller *TopupPoller, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{api: api, poller: poller, logger: logger}
}

// Topup starts a payment and begins polling its status.
func (s *PaymentService) Topup(ctx context.Context, amount float64) (*models.TopupResponse, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	resp, err := s.api.Topup(ctx, amount)
	if err != nil {
		return nil, err
	}
	if resp.TransactionID == "" {
		return nil, fmt.Errorf("service: top-up returned no transaction id")
	}
	s.logger.Info("topup initiated", zap.String("transaction_id", resp.TransactionID), zap.Float64("amount", amount))
	s.poller.StartPolling(context.WithoutCancel(ctx), resp.TransactionID)
	return resp, nil
}
