package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes profile HTTP endpoints. Route protection (admin only for
// registration and listing) is applied by the caller when mounting.
type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/profiles", h.registerProfile)
	r.Get("/api/v1/profiles", h.listProfiles)
	r.Get("/api/v1/profiles/{id}", h.getProfile)
}

func (h *Handler) registerProfile(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
		FullName string `json:"full_name"`
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	p, err := h.service.RegisterProfile(r.Context(), req.Email, req.Password, Role(req.Role), req.FullName)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidRole) || errors.Is(err, ErrEmailRequired) {
			code = http.StatusBadRequest
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}

	respond(w, http.StatusCreated, p)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.ListProfiles(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, profiles)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
