package stats

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/restaurantcrm/backend/internal/modules/order"
)

// Handler exposes the admin statistics endpoints. Mounted behind the admin
// gate by the caller.
type Handler struct{ orders order.Service }

func NewHandler(orders order.Service) *Handler { return &Handler{orders: orders} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/stats/summary", h.summary)
	r.Get("/api/v1/stats/sales", h.sales)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	all, err := h.orders.ListOrders(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, Aggregate(all, f))
}

func (h *Handler) sales(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	all, err := h.orders.ListOrders(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	sales := PaidSales(all, f)
	if sales == nil {
		sales = []*order.Order{}
	}
	respond(w, http.StatusOK, sales)
}

// parseFilter reads ?filter=day&date=2025-06-01, ?filter=month&month=2025-06,
// ?filter=year&year=2025, or ?filter=range&start=...&end=... (dates are
// YYYY-MM-DD; the range end is extended to the end of its day).
func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	kind := FilterKind(q.Get("filter"))

	switch kind {
	case "", FilterAll:
		return Filter{Kind: FilterAll}, nil
	case FilterDay:
		day, err := time.Parse("2006-01-02", q.Get("date"))
		if err != nil {
			return Filter{}, err
		}
		return Filter{Kind: FilterDay, Day: day}, nil
	case FilterMonth:
		month, err := time.Parse("2006-01", q.Get("month"))
		if err != nil {
			return Filter{}, err
		}
		return Filter{Kind: FilterMonth, Month: month}, nil
	case FilterYear:
		year, err := strconv.Atoi(q.Get("year"))
		if err != nil {
			return Filter{}, err
		}
		return Filter{Kind: FilterYear, Year: year}, nil
	case FilterRange:
		start, err := time.Parse("2006-01-02", q.Get("start"))
		if err != nil {
			return Filter{}, err
		}
		end, err := time.Parse("2006-01-02", q.Get("end"))
		if err != nil {
			return Filter{}, err
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
		return Filter{Kind: FilterRange, Start: start, End: end}, nil
	}
	return Filter{}, ErrBadFilter
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
