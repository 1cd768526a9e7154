package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/restaurantcrm/backend/internal/modules/user"
)

const tokenLifetime = 24 * time.Hour

// Claims extends the standard claims with the profile's role, so the
// middleware can gate routes without a database round-trip.
type Claims struct {
	jwt.StandardClaims
	Role string `json:"role"`
}

type service struct {
	userRepo user.Repository
	sessions SessionStore
	jwtKey   []byte
}

// NewService creates a new auth service. The signing key comes from
// configuration, never from source.
func NewService(userRepo user.Repository, sessions SessionStore, jwtKey []byte) Service {
	return &service{userRepo: userRepo, sessions: sessions, jwtKey: jwtKey}
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	p, err := s.userRepo.GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   p.ID.String(),
			Id:        uuid.New().String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(tokenLifetime).Unix(),
		},
		Role: string(p.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtKey)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{Token: signed, Profile: p}, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}

	remaining := claims.ExpiresAt - time.Now().Unix()
	if remaining <= 0 {
		return nil // already dead
	}
	return s.sessions.Revoke(ctx, claims.Id, remaining)
}

func (s *service) Resolve(ctx context.Context, token string) (*user.Profile, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.Id)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrSessionRevoked
	}

	return s.userRepo.GetProfileByID(ctx, claims.Subject)
}

func (s *service) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}
