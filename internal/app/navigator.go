package app

import (
	"go.uber.org/zap"

	"evmobile/internal/service"
)

// logNavigator records the route in the store and logs the transition. The
// daemon has no screens; the status API exposes the current route instead.
type logNavigator struct {
	store  *service.Store
	logger *zap.Logger
}

func (n *logNavigator) Navigate(route service.Route, params interface{}) {
	n.store.SetRoute(route)
	n.logger.Info("navigate", zap.String("route", string(route)), zap.Any("params", params))
}

type logNotifier struct {
	logger *zap.Logger
}

func (n *logNotifier) Toast(message string) {
	n.logger.Warn("toast", zap.String("message", message))
}
