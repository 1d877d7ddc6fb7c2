package clients

import (
	"context"

	"evmobile/internal/models"
)

// UsersClient reads and updates the signed-in profile.
type UsersClient struct {
	base *BaseClient
}

// NewUsersClient returns client.
func NewUsersClient(base *BaseClient) *UsersClient {
	return &UsersClient{base: base}
}

// Me fetches the profile.
func (c *UsersClient) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.base.Get(ctx, "v1/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe changes profile fields and returns the stored profile.
func (c *UsersClient) UpdateMe(ctx context.Context, req models.UpdateUserRequest) (*models.User, error) {
	var user models.User
	if err := c.base.Post(ctx, "v1/users/me", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
