package order

import (
	"errors"
	"testing"

	"github.com/restaurantcrm/backend/internal/modules/user"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"pending", StatusPending, false},
		{"preparing", StatusPreparing, false},
		{"ready", StatusReady, false},
		{"paid", StatusPaid, false},
		{"served", StatusReady, false}, // legacy label folds into ready
		{"cooked", "", true},
		{"", "", true},
	}

	for _, tc := range cases {
		got, err := NormalizeStatus(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrUnknownStatus) {
				t.Errorf("NormalizeStatus(%q): expected ErrUnknownStatus, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeStatus(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanTransition_HappyPath(t *testing.T) {
	steps := []struct {
		from, to Status
		role     user.Role
	}{
		{StatusPending, StatusPreparing, user.RoleChef},
		{StatusPreparing, StatusReady, user.RoleChef},
		{StatusReady, StatusPaid, user.RoleCashier},
	}

	for _, s := range steps {
		applied, err := CanTransition(s.from, s.to, s.role)
		if err != nil {
			t.Errorf("%s -> %s as %s: unexpected error %v", s.from, s.to, s.role, err)
		}
		if !applied {
			t.Errorf("%s -> %s as %s: expected applied=true", s.from, s.to, s.role)
		}
	}
}

func TestCanTransition_AdminMayTriggerEverything(t *testing.T) {
	for _, s := range []struct{ from, to Status }{
		{StatusPending, StatusPreparing},
		{StatusPreparing, StatusReady},
		{StatusReady, StatusPaid},
	} {
		if _, err := CanTransition(s.from, s.to, user.RoleAdmin); err != nil {
			t.Errorf("admin %s -> %s: unexpected error %v", s.from, s.to, err)
		}
	}
}

func TestCanTransition_SkippingStagesRejected(t *testing.T) {
	_, err := CanTransition(StatusPending, StatusPaid, user.RoleCashier)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("pending -> paid: expected ErrIllegalTransition, got %v", err)
	}
}

func TestCanTransition_PaidIsTerminal(t *testing.T) {
	for _, to := range []Status{StatusPending, StatusPreparing, StatusReady} {
		_, err := CanTransition(StatusPaid, to, user.RoleAdmin)
		if !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("paid -> %s: expected ErrIllegalTransition, got %v", to, err)
		}
	}
}

func TestCanTransition_RoleGates(t *testing.T) {
	cases := []struct {
		from, to Status
		role     user.Role
	}{
		{StatusPending, StatusPreparing, user.RoleWaiter},
		{StatusPending, StatusPreparing, user.RoleCashier},
		{StatusPreparing, StatusReady, user.RoleCashier},
		{StatusReady, StatusPaid, user.RoleChef},
		{StatusReady, StatusPaid, user.RoleWaiter},
	}

	for _, tc := range cases {
		_, err := CanTransition(tc.from, tc.to, tc.role)
		if !errors.Is(err, ErrRoleNotAllowed) {
			t.Errorf("%s -> %s as %s: expected ErrRoleNotAllowed, got %v", tc.from, tc.to, tc.role, err)
		}
	}
}

func TestCanTransition_ReplayIsNoop(t *testing.T) {
	applied, err := CanTransition(StatusPreparing, StatusPreparing, user.RoleChef)
	if err != nil {
		t.Fatalf("replay: unexpected error %v", err)
	}
	if applied {
		t.Error("replay: expected applied=false")
	}

	// Even a replay of a terminal state must not error.
	applied, err = CanTransition(StatusPaid, StatusPaid, user.RoleCashier)
	if err != nil || applied {
		t.Errorf("paid replay: got applied=%v err=%v", applied, err)
	}
}
