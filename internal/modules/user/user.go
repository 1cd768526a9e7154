package user

import (
	"time"

	"github.com/google/uuid"
)

// Role is the single authorization axis of the system. There is no
// per-permission granularity: a profile's role decides everything.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleWaiter  Role = "waiter"
	RoleChef    Role = "chef"
	RoleCashier Role = "cashier"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleWaiter, RoleChef, RoleCashier:
		return true
	}
	return false
}

// Profile represents a staff member's account.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
