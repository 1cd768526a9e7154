package product

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Handler exposes product HTTP endpoints. Create, update, and delete are
// mounted behind the admin gate by the caller; listing is open to every
// signed-in role (the waiter menu reads it).
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterReadRoutes mounts the endpoints every role may call.
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/api/v1/products", h.listProducts)
	r.Get("/api/v1/products/{id}", h.getProduct)
}

// RegisterWriteRoutes mounts the admin-only endpoints.
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/api/v1/products", h.createProduct)
	r.Put("/api/v1/products/{id}", h.updateProduct)
	r.Delete("/api/v1/products/{id}", h.deleteProduct)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	req, img, err := decodeProductForm(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	p, err := h.service.CreateProduct(r.Context(), CreateProductRequest(*req), img)
	if err != nil {
		respond(w, writeErrorCode(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	req, img, err := decodeProductForm(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), UpdateProductRequest(*req), img)
	if err != nil {
		code := writeErrorCode(err)
		if strings.Contains(err.Error(), "not found") {
			code = http.StatusNotFound
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, ErrHasSalesHistory) {
			code = http.StatusConflict
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "product deleted"})
}

// ── helpers ──────────────────────────────────────────────────────────────────

// decodeProductForm accepts either a JSON body or a multipart form with an
// optional "image" file part next to the scalar fields.
func decodeProductForm(r *http.Request) (*UpdateProductRequest, *Image, error) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		var req UpdateProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, nil, err
		}
		return &req, nil, nil
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return nil, nil, err
	}
	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil {
		return nil, nil, errors.New("invalid price")
	}
	stock, err := strconv.Atoi(r.FormValue("stock"))
	if err != nil {
		return nil, nil, errors.New("invalid stock")
	}
	req := &UpdateProductRequest{
		Name:     r.FormValue("name"),
		Category: r.FormValue("category"),
		Price:    price,
		Stock:    stock,
	}

	file, header, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return req, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return req, &Image{Filename: header.Filename, Data: file}, nil
}

func writeErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrInvalidStock):
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
