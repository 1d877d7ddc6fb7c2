package models

import "gopkg.in/guregu/null.v4"

// WalletBalance is always replaced wholesale from the wallet endpoint.
type WalletBalance struct {
	Amount   float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// WalletTransaction is one row of wallet history.
type WalletTransaction struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt null.Time `json:"created_at"`
}

// TopupRequest initiates a wallet top-up payment.
type TopupRequest struct {
	Amount float64 `json:"amount"`
}

// TopupResponse identifies the pending payment.
type TopupResponse struct {
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url,omitempty"`
}

// VerifyRequest asks for the status of a top-up.
type VerifyRequest struct {
	TransactionID string `json:"transaction_id"`
}

// Payment verification statuses treated as final success.
const (
	PaymentStatusApproved  = "APPROVED"
	PaymentStatusCompleted = "COMPLETED"
)

// VerifyResponse reports the status of a top-up.
type VerifyResponse struct {
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transaction_id"`
	Date          string  `json:"date"`
}

// Approved reports whether the payment reached a final success state.
func (r VerifyResponse) Approved() bool {
	return r.Status == PaymentStatusApproved || r.Status == PaymentStatusCompleted
}
