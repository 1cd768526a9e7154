package auth

import (
	"context"
	"errors"

	"github.com/restaurantcrm/backend/internal/modules/user"
)

var (
	// ErrInvalidCredentials is returned for a bad email/password pair. It is
	// deliberately the same for both cases.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionRevoked is returned when a signed-out token is presented.
	ErrSessionRevoked = errors.New("session has been revoked")
)

// Session is the resolved identity behind a valid token.
type Session struct {
	Token   string        `json:"token"`
	Profile *user.Profile `json:"profile"`
}

// Service defines the interface for authentication business logic.
type Service interface {
	// Login verifies credentials and issues a signed session token carrying
	// the profile's role.
	Login(ctx context.Context, email, password string) (*Session, error)

	// Logout revokes the given token for the rest of its lifetime.
	Logout(ctx context.Context, token string) error

	// Resolve validates a token (signature, expiry, revocation) and returns
	// the profile it belongs to.
	Resolve(ctx context.Context, token string) (*user.Profile, error)
}

// SessionStore tracks revoked sessions. Entries expire with the token they
// revoke, so the store never grows unbounded.
type SessionStore interface {
	Revoke(ctx context.Context, jti string, ttlSeconds int64) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
