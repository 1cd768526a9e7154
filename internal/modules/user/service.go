package user

import (
	"context"
	"errors"
)

var (
	// ErrInvalidRole is returned when a profile is created with an unknown role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrEmailRequired is returned when a profile is created without an email.
	ErrEmailRequired = errors.New("email is required")
)

// Service defines the interface for profile-related business logic.
type Service interface {
	RegisterProfile(ctx context.Context, email, password string, role Role, fullName string) (*Profile, error)
	GetProfile(ctx context.Context, id string) (*Profile, error)
	ListProfiles(ctx context.Context) ([]*Profile, error)
}
