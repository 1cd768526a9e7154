package order

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientStock is returned by PlaceOrder when any line's stock
	// decrement would go negative; nothing is persisted in that case.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrOrderNotFound is returned when the order row does not exist.
	ErrOrderNotFound = errors.New("order not found")
)

// ProductSnapshot is the name and unit price captured for an order line.
type ProductSnapshot struct {
	Name  string
	Price float64
}

// Repository defines data access for orders.
type Repository interface {
	// ListOrders returns all orders joined with their items and each item's
	// product name, newest first.
	ListOrders(ctx context.Context) ([]*Order, error)

	// GetOrderByID retrieves one order with its items.
	GetOrderByID(ctx context.Context, id string) (*Order, error)

	// CreateFullOrder atomically inserts the order row, all item rows, and
	// decrements each referenced product's stock. Any failed decrement rolls
	// the whole transaction back and surfaces ErrInsufficientStock.
	CreateFullOrder(ctx context.Context, o *Order) error

	// ReplaceItems swaps the full item set of an order (delete-all-then-
	// insert) and updates the stored total, in one transaction.
	ReplaceItems(ctx context.Context, orderID string, items []*OrderItem, total float64) error

	// DeleteOrder removes the item rows and then the order row in one
	// transaction; if the order-row delete affects zero rows the whole
	// transaction rolls back so no orphaned state survives.
	DeleteOrder(ctx context.Context, id string) error

	// UpdateStatus writes the status field. Legality is the service's job.
	UpdateStatus(ctx context.Context, id string, status Status) error

	// MarkDelivered flags a ready order as picked up by the waiter.
	MarkDelivered(ctx context.Context, id string) error

	// GetProductSnapshot fetches the current name and price of a product for
	// denormalizing onto an order line.
	GetProductSnapshot(ctx context.Context, productID string) (*ProductSnapshot, error)
}
