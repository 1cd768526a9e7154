package product

import "context"

// Repository defines data access for products.
type Repository interface {
	// ListProducts returns all products ordered by name ascending.
	ListProducts(ctx context.Context) ([]*Product, error)

	// GetProductByID retrieves a single product.
	GetProductByID(ctx context.Context, id string) (*Product, error)

	// CreateProduct persists a new product row.
	CreateProduct(ctx context.Context, p *Product) error

	// UpdateProduct rewrites the mutable fields of an existing product.
	UpdateProduct(ctx context.Context, p *Product) error

	// DeleteProduct removes a product row.
	DeleteProduct(ctx context.Context, id string) error

	// CountOrderItemRefs reports how many order_items reference the product.
	CountOrderItemRefs(ctx context.Context, id string) (int, error)
}
