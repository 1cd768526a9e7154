package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/restaurantcrm/backend/internal/modules/auth"
)

// Handler exposes order HTTP endpoints. The acting role comes from the auth
// middleware; the lifecycle table decides which role may do what, so every
// authenticated role can be mounted on the same route group.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Post("/", h.placeOrder)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}", h.editOrder)
		r.Delete("/{id}", h.deleteOrder)
		r.Patch("/{id}/status", h.updateStatus)
		r.Post("/{id}/delivered", h.markDelivered)
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond(w, statusCode(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	o, err := h.service.PlaceOrder(r.Context(), auth.RoleFromContext(r.Context()), req)
	if err != nil {
		respond(w, statusCode(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, o)
}

func (h *Handler) editOrder(w http.ResponseWriter, r *http.Request) {
	var req EditOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	o, err := h.service.EditOrder(r.Context(), auth.RoleFromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		respond(w, statusCode(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteOrder(r.Context(), auth.RoleFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respond(w, statusCode(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "order deleted"})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	o, err := h.service.AdvanceStatus(r.Context(), auth.RoleFromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		respond(w, statusCode(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) markDelivered(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.MarkDelivered(r.Context(), auth.RoleFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respond(w, statusCode(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, o)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func statusCode(err error) int {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRoleNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrOrderFrozen),
		errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrNotReady):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnknownStatus), errors.Is(err, ErrEmptyOrder),
		errors.Is(err, ErrTableRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
