package stats

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseFilter(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		want    Filter
		wantErr bool
	}{
		{"no params defaults to all", "", Filter{Kind: FilterAll}, false},
		{"explicit all", "filter=all", Filter{Kind: FilterAll}, false},
		{"day", "filter=day&date=2026-03-10", Filter{Kind: FilterDay, Day: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}, false},
		{"day without date", "filter=day", Filter{}, true},
		{"month", "filter=month&month=2026-03", Filter{Kind: FilterMonth, Month: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}, false},
		{"year", "filter=year&year=2026", Filter{Kind: FilterYear, Year: 2026}, false},
		{"year garbage", "filter=year&year=twenty", Filter{}, true},
		{"unknown kind", "filter=week", Filter{}, true},
	}

	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/api/v1/stats/summary?"+tc.query, nil)
		got, err := parseFilter(req)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if got.Kind != tc.want.Kind || !got.Day.Equal(tc.want.Day) || !got.Month.Equal(tc.want.Month) || got.Year != tc.want.Year {
			t.Errorf("%s: filter = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestParseFilter_RangeEndIsInclusive(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/stats/sales?filter=range&start=2026-03-01&end=2026-03-31", nil)
	f, err := parseFilter(req)
	if err != nil {
		t.Fatalf("parseFilter: %v", err)
	}

	lastMoment := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	if !f.Matches(lastMoment) {
		t.Error("an order placed late on the end date must fall inside the range")
	}
	if f.Matches(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("the day after the end date must fall outside the range")
	}
}

func TestParseFilter_UnknownKindError(t *testing.T) {
	req := httptest.NewRequest("GET", "/?filter=week", nil)
	_, err := parseFilter(req)
	if !errors.Is(err, ErrBadFilter) {
		t.Errorf("expected ErrBadFilter, got %v", err)
	}
}
