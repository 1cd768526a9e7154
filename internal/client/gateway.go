// Package client is the in-process client core: a typed gateway over the API,
// an in-memory state store synchronized through the realtime change feed, and
// role-scoped views over that store. It is what the web and mobile shells
// embed; everything UI-specific stays out.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/restaurantcrm/backend/internal/modules/order"
	"github.com/restaurantcrm/backend/internal/modules/product"
	"github.com/restaurantcrm/backend/internal/modules/user"
)

// APIError is a typed failure from the backend. There is no automatic retry;
// callers surface the message and may refresh manually.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// ImageUpload accompanies a product create or update.
type ImageUpload struct {
	Filename string
	Data     io.Reader
}

// API is the gateway surface the state store depends on. Tests substitute a
// fake; production uses *Gateway.
type API interface {
	ListProducts(ctx context.Context) ([]*product.Product, error)
	ListOrders(ctx context.Context) ([]*order.Order, error)

	CreateOrder(ctx context.Context, table string, items []order.CartLine) (*order.Order, error)
	UpdateOrder(ctx context.Context, id string, items []order.CartLine) (*order.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	UpdateOrderStatus(ctx context.Context, id string, status order.Status) (*order.Order, error)
	MarkDelivered(ctx context.Context, id string) (*order.Order, error)

	CreateProduct(ctx context.Context, req product.CreateProductRequest, img *ImageUpload) (*product.Product, error)
	UpdateProduct(ctx context.Context, id string, req product.UpdateProductRequest, img *ImageUpload) (*product.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Gateway is the HTTP implementation of API plus the auth calls.
type Gateway struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// NewGateway points a gateway at the API base URL (no trailing slash).
func NewGateway(baseURL string) *Gateway {
	return &Gateway{baseURL: baseURL, http: &http.Client{}}
}

// Login signs in and keeps the session token for subsequent calls.
func (g *Gateway) Login(ctx context.Context, email, password string) (*user.Profile, error) {
	body := map[string]string{"email": email, "password": password}
	var resp struct {
		Token   string        `json:"token"`
		Profile *user.Profile `json:"profile"`
	}
	if err := g.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &resp); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.token = resp.Token
	g.mu.Unlock()
	return resp.Profile, nil
}

// Logout revokes the session server-side and drops the token.
func (g *Gateway) Logout(ctx context.Context) error {
	err := g.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	g.mu.Lock()
	g.token = ""
	g.mu.Unlock()
	return err
}

func (g *Gateway) ListProducts(ctx context.Context) ([]*product.Product, error) {
	var products []*product.Product
	if err := g.do(ctx, http.MethodGet, "/api/v1/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (g *Gateway) ListOrders(ctx context.Context) ([]*order.Order, error) {
	var orders []*order.Order
	if err := g.do(ctx, http.MethodGet, "/api/v1/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (g *Gateway) CreateOrder(ctx context.Context, table string, items []order.CartLine) (*order.Order, error) {
	req := order.PlaceOrderRequest{TableNumber: table, Items: items}
	o := &order.Order{}
	if err := g.do(ctx, http.MethodPost, "/api/v1/orders", req, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (g *Gateway) UpdateOrder(ctx context.Context, id string, items []order.CartLine) (*order.Order, error) {
	req := order.EditOrderRequest{Items: items}
	o := &order.Order{}
	if err := g.do(ctx, http.MethodPut, "/api/v1/orders/"+id, req, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (g *Gateway) DeleteOrder(ctx context.Context, id string) error {
	return g.do(ctx, http.MethodDelete, "/api/v1/orders/"+id, nil, nil)
}

func (g *Gateway) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	req := order.UpdateStatusRequest{Status: string(status)}
	o := &order.Order{}
	if err := g.do(ctx, http.MethodPatch, "/api/v1/orders/"+id+"/status", req, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (g *Gateway) MarkDelivered(ctx context.Context, id string) (*order.Order, error) {
	o := &order.Order{}
	if err := g.do(ctx, http.MethodPost, "/api/v1/orders/"+id+"/delivered", nil, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (g *Gateway) CreateProduct(ctx context.Context, req product.CreateProductRequest, img *ImageUpload) (*product.Product, error) {
	p := &product.Product{}
	if img == nil {
		if err := g.do(ctx, http.MethodPost, "/api/v1/products", req, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err := g.doMultipart(ctx, http.MethodPost, "/api/v1/products",
		req.Name, req.Category, req.Price, req.Stock, img, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (g *Gateway) UpdateProduct(ctx context.Context, id string, req product.UpdateProductRequest, img *ImageUpload) (*product.Product, error) {
	p := &product.Product{}
	if img == nil {
		if err := g.do(ctx, http.MethodPut, "/api/v1/products/"+id, req, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err := g.doMultipart(ctx, http.MethodPut, "/api/v1/products/"+id,
		req.Name, req.Category, req.Price, req.Stock, img, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (g *Gateway) DeleteProduct(ctx context.Context, id string) error {
	return g.do(ctx, http.MethodDelete, "/api/v1/products/"+id, nil, nil)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (g *Gateway) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	g.authorize(req)

	return g.send(req, out)
}

func (g *Gateway) doMultipart(ctx context.Context, method, path, name, category string,
	price float64, stock int, img *ImageUpload, out interface{}) error {

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("name", name)
	mw.WriteField("category", category)
	mw.WriteField("price", fmt.Sprintf("%g", price))
	mw.WriteField("stock", fmt.Sprintf("%d", stock))

	part, err := mw.CreateFormFile("image", img.Filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, img.Data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	g.authorize(req)

	return g.send(req, out)
}

func (g *Gateway) send(req *http.Request, out interface{}) error {
	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (g *Gateway) authorize(req *http.Request) {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
