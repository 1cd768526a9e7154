package order

import (
	"errors"
	"fmt"

	"github.com/restaurantcrm/backend/internal/modules/user"
)

var (
	// ErrUnknownStatus is returned for a status outside the closed enum.
	ErrUnknownStatus = errors.New("unknown order status")
	// ErrIllegalTransition is returned when the state machine forbids a move.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrRoleNotAllowed is returned when the actor's role may not trigger the
	// requested transition.
	ErrRoleNotAllowed = errors.New("role not allowed for this transition")
)

// transitions is the validity table: current status → allowed next status →
// roles that may trigger it. Admin is included everywhere because the admin
// surface exposes every action.
var transitions = map[Status]map[Status][]user.Role{
	StatusPending: {
		StatusPreparing: {user.RoleChef, user.RoleAdmin},
	},
	StatusPreparing: {
		StatusReady: {user.RoleChef, user.RoleAdmin},
	},
	StatusReady: {
		StatusPaid: {user.RoleCashier, user.RoleAdmin},
	},
	StatusPaid: {}, // terminal
}

// NormalizeStatus maps wire strings to the closed enum, folding the legacy
// "served" label into ready.
func NormalizeStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusPreparing, StatusReady, StatusPaid:
		return Status(s), nil
	}
	if s == "served" {
		return StatusReady, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// CanTransition checks the state machine and the actor's role for a move from
// one status to another. A transition to the current status is reported as a
// no-op (nil error, applied=false) so at-least-once replays stay harmless.
func CanTransition(from, to Status, role user.Role) (applied bool, err error) {
	if from == to {
		return false, nil
	}

	allowed, ok := transitions[from]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	roles, ok := allowed[to]
	if !ok {
		return false, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: %s may not move %s -> %s", ErrRoleNotAllowed, role, from, to)
}

// Editable reports whether items may still be added, changed, or removed.
// Once kitchen acknowledgment begins the ticket is frozen.
func (o *Order) Editable() bool { return o.Status == StatusPending }

// Deletable reports whether the order may still be removed entirely.
func (o *Order) Deletable() bool { return o.Status == StatusPending }

// PaymentEligible reports whether a cashier may collect for this order.
func (o *Order) PaymentEligible() bool { return o.Status == StatusReady }
