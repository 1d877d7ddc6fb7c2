package service

import "evmobile/internal/models"

// Route names a view the UI can show.
type Route string

// Routes the core navigates to.
const (
	RouteChargingDetail Route = "charging-detail"
	RouteChargingResult Route = "charging-result"
	RoutePaymentSuccess Route = "payment-success"
	RouteTopup          Route = "topup"
)

// Navigator switches the visible view.
type Navigator interface {
	Navigate(route Route, params interface{})
}

// Notifier shows transient user messages.
type Notifier interface {
	Toast(message string)
}

// PaymentSuccessParams is carried to the payment-success view.
type PaymentSuccessParams struct {
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transaction_id"`
	Date          string  `json:"date"`
}

// ChargingParams is carried to the charging views.
type ChargingParams struct {
	SessionID string                  `json:"session_id"`
	Snapshot  *models.SessionSnapshot `json:"snapshot,omitempty"`
}

type nopNavigator struct{}

func (nopNavigator) Navigate(Route, interface{}) {}

type nopNotifier struct{}

func (nopNotifier) Toast(string) {}
