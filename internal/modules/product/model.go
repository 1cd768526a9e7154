package product

import (
	"time"

	"github.com/google/uuid"
)

// Product is a menu item. Stock never goes negative, and a product with any
// historical order-item reference cannot be deleted; it must survive for
// reporting integrity.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateProductRequest is the payload for adding a menu item.
type CreateProductRequest struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
}

// UpdateProductRequest is the payload for editing a menu item.
type UpdateProductRequest struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
}
