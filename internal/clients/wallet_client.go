package clients

import (
	"context"
	"net/url"
	"strconv"

	"evmobile/internal/models"
)

// WalletClient calls the v1/wallet endpoints.
type WalletClient struct {
	base *BaseClient
}

// NewWalletClient returns client.
func NewWalletClient(base *BaseClient) *WalletClient {
	return &WalletClient{base: base}
}

// Balance fetches the wallet balance.
func (c *WalletClient) Balance(ctx context.Context) (*models.WalletBalance, error) {
	var balance models.WalletBalance
	if err := c.base.Get(ctx, "v1/wallet", nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// Transactions fetches one page of wallet history.
func (c *WalletClient) Transactions(ctx context.Context, page, size int) (*models.Page[models.WalletTransaction], error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	var result models.Page[models.WalletTransaction]
	if err := c.base.Get(ctx, "v1/wallet/transactions", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Topup initiates a payment and returns its transaction id.
func (c *WalletClient) Topup(ctx context.Context, amount float64) (*models.TopupResponse, error) {
	var resp models.TopupResponse
	if err := c.base.Post(ctx, "v1/wallet/topup", models.TopupRequest{Amount: amount}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify reports the status of a top-up transaction.
func (c *WalletClient) Verify(ctx context.Context, transactionID string) (*models.VerifyResponse, error) {
	var resp models.VerifyResponse
	if err := c.base.Post(ctx, "v1/wallet/verify", models.VerifyRequest{TransactionID: transactionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
