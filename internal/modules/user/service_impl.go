package user

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type service struct {
	repo Repository
}

// NewService creates a new profile service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) RegisterProfile(ctx context.Context, email, password string, role Role, fullName string) (*Profile, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		ID:           uuid.New(),
		Email:        email,
		Role:         role,
		FullName:     fullName,
		PasswordHash: string(hashedPassword),
	}

	if err := s.repo.CreateProfile(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *service) GetProfile(ctx context.Context, id string) (*Profile, error) {
	return s.repo.GetProfileByID(ctx, id)
}

func (s *service) ListProfiles(ctx context.Context) ([]*Profile, error) {
	return s.repo.ListProfiles(ctx)
}
