package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the auth HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/auth/login", h.login)
	r.Post("/api/v1/auth/logout", h.logout)
	r.Get("/api/v1/auth/me", h.me)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidCredentials) {
			code = http.StatusUnauthorized
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, session)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "login required"})
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "login required"})
		return
	}
	p, err := h.service.Resolve(r.Context(), token)
	if err != nil {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired session"})
		return
	}
	respond(w, http.StatusOK, p)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
