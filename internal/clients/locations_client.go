package clients

import (
	"context"
	"encoding/json"

	"evmobile/internal/models"
)

// LocationsClient lists charging sites.
type LocationsClient struct {
	base *BaseClient
}

// NewLocationsClient returns client.
func NewLocationsClient(base *BaseClient) *LocationsClient {
	return &LocationsClient{base: base}
}

// List returns every known location.
func (c *LocationsClient) List(ctx context.Context) ([]models.Location, error) {
	var locations []models.Location
	if err := c.base.Post(ctx, "v1/location/list", struct{}{}, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// Lookup keys served under v1/lookup.
const (
	LookupSlideshow   = "slideshow"
	LookupTopupAmount = "topup-amount"
	LookupFAQ         = "faq"
	LookupContactUs   = "contact-us"
)

// LookupClient reads static content lists.
type LookupClient struct {
	base *BaseClient
}

// NewLookupClient returns client.
func NewLookupClient(base *BaseClient) *LookupClient {
	return &LookupClient{base: base}
}

// Get returns the raw data of a lookup list.
func (c *LookupClient) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var data json.RawMessage
	if err := c.base.Get(ctx, "v1/lookup/"+key, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// TopupAmounts returns the preset top-up amounts.
func (c *LookupClient) TopupAmounts(ctx context.Context) ([]float64, error) {
	raw, err := c.Get(ctx, LookupTopupAmount)
	if err != nil {
		return nil, err
	}
	var amounts []float64
	if err := json.Unmarshal(raw, &amounts); err != nil {
		return nil, err
	}
	return amounts, nil
}
