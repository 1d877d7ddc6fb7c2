package clients

import (
	"context"

	"evmobile/internal/models"
)

// AuthClient calls the v1/auth endpoints.
type AuthClient struct {
	base *BaseClient
}

// NewAuthClient returns client.
func NewAuthClient(base *BaseClient) *AuthClient {
	return &AuthClient{base: base}
}

// Login exchanges credentials for a bearer token.
func (c *AuthClient) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.base.Post(ctx, "v1/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the current token server-side.
func (c *AuthClient) Logout(ctx context.Context) error {
	return c.base.Post(ctx, "v1/auth/logout", struct{}{}, nil)
}

// ExistPhoneNumber reports whether the number already has an account.
func (c *AuthClient) ExistPhoneNumber(ctx context.Context, phone string) (bool, error) {
	var resp models.PhoneLookupResponse
	if err := c.base.Post(ctx, "v1/auth/exist-phone-number", models.PhoneLookupRequest{PhoneNumber: phone}, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// Register creates an account.
func (c *AuthClient) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.base.Post(ctx, "v1/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
