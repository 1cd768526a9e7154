package user

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

type mockRepo struct {
	profiles map[string]*Profile
}

func newMockRepo() *mockRepo {
	return &mockRepo{profiles: make(map[string]*Profile)}
}

func (m *mockRepo) CreateProfile(ctx context.Context, p *Profile) error {
	m.profiles[p.ID.String()] = p
	return nil
}

func (m *mockRepo) GetProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	for _, p := range m.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, errors.New("profile not found")
}

func (m *mockRepo) GetProfileByID(ctx context.Context, id string) (*Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, errors.New("profile not found")
	}
	return p, nil
}

func (m *mockRepo) ListProfiles(ctx context.Context) ([]*Profile, error) {
	out := make([]*Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

func TestRegisterProfile_HashesPassword(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p, err := svc.RegisterProfile(context.Background(), "ana@example.com", "s3cret", RoleWaiter, "Ana")
	if err != nil {
		t.Fatalf("RegisterProfile: %v", err)
	}

	if p.PasswordHash == "s3cret" || p.PasswordHash == "" {
		t.Error("password must be stored as a bcrypt hash")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("s3cret")); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
	if _, ok := repo.profiles[p.ID.String()]; !ok {
		t.Error("profile not persisted")
	}
}

func TestRegisterProfile_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	_, err := svc.RegisterProfile(ctx, "", "pw", RoleWaiter, "")
	if !errors.Is(err, ErrEmailRequired) {
		t.Errorf("missing email: expected ErrEmailRequired, got %v", err)
	}

	_, err = svc.RegisterProfile(ctx, "b@example.com", "pw", Role("dishwasher"), "")
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("bogus role: expected ErrInvalidRole, got %v", err)
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleWaiter, RoleChef, RoleCashier} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	for _, r := range []Role{"", "manager", "ADMIN"} {
		if Role(r).Valid() {
			t.Errorf("%q should be invalid", r)
		}
	}
}
