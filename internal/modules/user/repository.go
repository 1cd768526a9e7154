package user

import "context"

// Repository defines data access for staff profiles.
type Repository interface {
	CreateProfile(ctx context.Context, p *Profile) error
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)
	GetProfileByID(ctx context.Context, id string) (*Profile, error)
	ListProfiles(ctx context.Context) ([]*Profile, error)
}
