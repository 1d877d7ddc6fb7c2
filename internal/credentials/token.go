package credentials

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the access token the client reads.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenInfo describes an access token without verifying its signature; the
// backend remains the only verifier.
type TokenInfo struct {
	Subject   string
	UserID    int64
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now. Tokens without
// an expiry never expire client-side.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Inspect decodes the claims of token.
func Inspect(token string) (TokenInfo, error) {
	if token == "" {
		return TokenInfo{}, errors.New("credentials: empty token")
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, err
	}
	info := TokenInfo{Subject: claims.Subject, UserID: claims.UserID, Role: claims.Role}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
