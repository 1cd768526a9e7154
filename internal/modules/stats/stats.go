// Package stats computes the admin dashboard aggregates over an in-memory
// order set. The same functions back the HTTP endpoint and the client core's
// admin view, so both surfaces always agree.
package stats

import (
	"errors"
	"time"

	"github.com/restaurantcrm/backend/internal/modules/order"
)

// FilterKind selects how the date filter interprets its fields.
type FilterKind string

const (
	FilterAll   FilterKind = "all"
	FilterDay   FilterKind = "day"
	FilterMonth FilterKind = "month"
	FilterYear  FilterKind = "year"
	FilterRange FilterKind = "range"
)

// ErrBadFilter is returned for an unknown filter kind.
var ErrBadFilter = errors.New("unknown stats filter")

// Filter restricts aggregation to a window of order creation times.
type Filter struct {
	Kind  FilterKind
	Day   time.Time // FilterDay: any instant inside the day
	Month time.Time // FilterMonth: any instant inside the month
	Year  int       // FilterYear
	Start time.Time // FilterRange, inclusive
	End   time.Time // FilterRange, inclusive
}

// Matches reports whether an order's creation time falls inside the filter.
func (f Filter) Matches(t time.Time) bool {
	switch f.Kind {
	case FilterAll, "":
		return true
	case FilterDay:
		y1, m1, d1 := f.Day.Date()
		y2, m2, d2 := t.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case FilterMonth:
		return f.Month.Year() == t.Year() && f.Month.Month() == t.Month()
	case FilterYear:
		return t.Year() == f.Year
	case FilterRange:
		return !t.Before(f.Start) && !t.After(f.End)
	}
	return false
}

// BestSeller is the product with the highest summed quantity across all
// matched orders (paid or not, matching the admin dashboard).
type BestSeller struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// Summary is the admin dashboard headline block.
type Summary struct {
	TotalRevenue float64     `json:"total_revenue"`
	OrderCount   int         `json:"order_count"`
	BestSeller   *BestSeller `json:"best_seller,omitempty"`
}

// Aggregate computes the summary over the given orders with the filter
// applied first. Revenue counts paid orders only; the order count and best
// seller span every matched order.
func Aggregate(orders []*order.Order, f Filter) Summary {
	var s Summary
	quantities := map[string]int{}

	for _, o := range orders {
		if !f.Matches(o.CreatedAt) {
			continue
		}
		s.OrderCount++
		if o.Status == order.StatusPaid {
			s.TotalRevenue += o.Total
		}
		for _, item := range o.Items {
			quantities[item.ProductName] += item.Quantity
		}
	}

	for name, qty := range quantities {
		if s.BestSeller == nil || qty > s.BestSeller.Quantity {
			s.BestSeller = &BestSeller{ProductName: name, Quantity: qty}
		}
	}
	return s
}

// PaidSales returns the paid orders inside the filter window, preserving the
// input's newest-first ordering.
func PaidSales(orders []*order.Order, f Filter) []*order.Order {
	var sales []*order.Order
	for _, o := range orders {
		if o.Status == order.StatusPaid && f.Matches(o.CreatedAt) {
			sales = append(sales, o)
		}
	}
	return sales
}
