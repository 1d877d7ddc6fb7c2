package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"evmobile/internal/models"
)

// ErrEmptyToken is returned when login succeeds without a credential.
var ErrEmptyToken = errors.New("service: login returned no access token")

// AuthAPI is the auth and profile part of the REST surface.
type AuthAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context) error
	ExistPhoneNumber(ctx context.Context, phone string) (bool, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error)
}

// ProfileAPI reads and updates the signed-in user.
type ProfileAPI interface {
	Me(ctx context.Context) (*models.User, error)
	UpdateMe(ctx context.Context, req models.UpdateUserRequest) (*models.User, error)
}

// CredentialStore keeps the bearer credential between runs.
type CredentialStore interface {
	Save(accessToken, refreshToken string) error
	Clear() error
}

// Connector is the socket lifecycle as seen by auth.
type Connector interface {
	Connect()
	Close()
}

// AuthService signs the user in and out and keeps the auth flag in the store.
type AuthService struct {
	api     AuthAPI
	profile ProfileAPI
	creds   CredentialStore
	socket  Connector
	store   *Store
	poller  *TopupPoller
	logger  *zap.Logger
}

// NewAuthService returns service.
func NewAuthService(api AuthAPI, profile ProfileAPI, creds CredentialStore, socket Connector, store *Store, poller *TopupPoller, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{api: api, profile: profile, creds: creds, socket: socket, store: store, poller: poller, logger: logger}
}

// Login stores the returned credential and opens the socket.
func (s *AuthService) Login(ctx context.Context, phone, password string) (*models.LoginResponse, error) {
	resp, err := s.api.Login(ctx, models.LoginRequest{PhoneNumber: phone, Password: password})
	if err != nil {
		return nil, err
	}
	if err := s.signIn(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	resp, err := s.api.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.signIn(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *AuthService) signIn(resp *models.LoginResponse) error {
	if resp == nil || resp.AccessToken == "" {
		return ErrEmptyToken
	}
	if err := s.creds.Save(resp.AccessToken, resp.RefreshToken); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	s.store.SetAuthenticated(true)
	if s.socket != nil {
		s.socket.Connect()
	}
	s.logger.Info("signed in")
	return nil
}

// Logout invalidates the token, wipes local state and closes the socket. Local
// cleanup runs even when the endpoint call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	apiErr := s.api.Logout(ctx)
	if apiErr != nil {
		s.logger.Warn("logout endpoint failed", zap.Error(apiErr))
	}
	if s.poller != nil {
		s.poller.StopPolling()
	}
	if s.socket != nil {
		s.socket.Close()
	}
	s.store.Reset()
	if err := s.creds.Clear(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	s.logger.Info("signed out")
	return apiErr
}

// ExistPhoneNumber reports whether the number is registered.
func (s *AuthService) ExistPhoneNumber(ctx context.Context, phone string) (bool, error) {
	return s.api.ExistPhoneNumber(ctx, phone)
}

// Me fetches the profile.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	return s.profile.Me(ctx)
}

// UpdateMe changes profile fields.
func (s *AuthService) UpdateMe(ctx context.Context, req models.UpdateUserRequest) (*models.User, error) {
	return s.profile.UpdateMe(ctx, req)
}
