package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/restaurantcrm/backend/internal/modules/user"
)

type contextKey string

const profileKey contextKey = "auth.profile"

// ProfileFromContext returns the profile the middleware attached, or nil.
func ProfileFromContext(ctx context.Context) *user.Profile {
	p, _ := ctx.Value(profileKey).(*user.Profile)
	return p
}

// RoleFromContext returns the acting role, or the empty role when
// unauthenticated.
func RoleFromContext(ctx context.Context) user.Role {
	if p := ProfileFromContext(ctx); p != nil {
		return p.Role
	}
	return ""
}

// Middleware resolves bearer tokens and gates routes by role.
type Middleware struct {
	service Service
}

func NewMiddleware(service Service) *Middleware {
	return &Middleware{service: service}
}

// RequireRole rejects requests whose session is missing (401) or whose role
// is not in the allowed set (403). Admin passes every gate.
func (m *Middleware) RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				deny(w, http.StatusUnauthorized, "login required")
				return
			}

			p, err := m.service.Resolve(r.Context(), token)
			if err != nil {
				deny(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}

			if !allowed(p.Role, roles) {
				deny(w, http.StatusForbidden, "role not permitted")
				return
			}

			ctx := context.WithValue(r.Context(), profileKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth admits any signed-in role.
func (m *Middleware) RequireAuth() func(http.Handler) http.Handler {
	return m.RequireRole(user.RoleAdmin, user.RoleWaiter, user.RoleChef, user.RoleCashier)
}

func allowed(role user.Role, roles []user.Role) bool {
	if role == user.RoleAdmin {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
