package order

import (
	"errors"
	"net/http"
	"testing"
)

var errDatabaseDown = errors.New("database down")

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrOrderNotFound, http.StatusNotFound},
		{ErrRoleNotAllowed, http.StatusForbidden},
		{ErrIllegalTransition, http.StatusUnprocessableEntity},
		{ErrOrderFrozen, http.StatusUnprocessableEntity},
		{ErrInsufficientStock, http.StatusUnprocessableEntity},
		{ErrNotReady, http.StatusUnprocessableEntity},
		{ErrUnknownStatus, http.StatusBadRequest},
		{ErrEmptyOrder, http.StatusBadRequest},
		{ErrTableRequired, http.StatusBadRequest},
		{errDatabaseDown, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := statusCode(tc.err); got != tc.want {
			t.Errorf("statusCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
