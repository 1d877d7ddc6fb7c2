package clients

import (
	"context"
	"errors"
	"net/url"

	"evmobile/internal/models"
)

// ChargersClient controls chargers and reads session telemetry.
type ChargersClient struct {
	base *BaseClient
}

// NewChargersClient returns client.
func NewChargersClient(base *BaseClient) *ChargersClient {
	return &ChargersClient{base: base}
}

// RemoteStart asks the backend to start charging on a connector.
func (c *ChargersClient) RemoteStart(ctx context.Context, req models.RemoteStartRequest) (*models.RemoteStartResponse, error) {
	var resp models.RemoteStartResponse
	if err := c.base.Post(ctx, "v1/chargers/remote-start", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoteStop asks the backend to stop an ongoing transaction.
func (c *ChargersClient) RemoteStop(ctx context.Context, req models.RemoteStopRequest) (*models.RemoteStopResponse, error) {
	var resp models.RemoteStopResponse
	if err := c.base.Post(ctx, "v1/chargers/remote-stop", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChargingSession fetches current telemetry for a session.
func (c *ChargersClient) ChargingSession(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	if sessionID == "" {
		return nil, errors.New("clients: session id is required")
	}
	var snap models.SessionSnapshot
	if err := c.base.Get(ctx, "v1/chargers/charging-sessions/"+url.PathEscape(sessionID), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ChargingHistory pages through finished sessions.
func (c *ChargersClient) ChargingHistory(ctx context.Context, req models.ChargingHistoryRequest) (*models.Page[models.ChargingHistoryItem], error) {
	var page models.Page[models.ChargingHistoryItem]
	if err := c.base.Post(ctx, "v1/chargers/charging-history", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
