package order

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an order. The canonical name for the
// "cooked, waiting for payment" stage is ready; served is accepted as its
// synonym on input because older clients emit it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusPaid      Status = "paid"
)

// Order is one table's ticket. The total is frozen at the last write: the
// sum of item price×quantity snapshots, never recomputed from live product
// prices.
type Order struct {
	ID          uuid.UUID    `json:"id"`
	TableNumber string       `json:"table_number"`
	Status      Status       `json:"status"`
	Total       float64      `json:"total"`
	Delivered   bool         `json:"delivered"`
	CreatedAt   time.Time    `json:"created_at"`
	Items       []*OrderItem `json:"items"`
}

// OrderItem is a single line on the ticket. Price is a snapshot taken at
// order time, so history stays accurate when the product is repriced.
// ProductName is not stored: it is joined from the live product row on
// read, and the sales-history delete guard keeps that row around.
type OrderItem struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
}

// CartLine names a product and a quantity when placing or editing an order.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderRequest is the payload for creating an order.
type PlaceOrderRequest struct {
	TableNumber string     `json:"table_number"`
	Items       []CartLine `json:"items"`
}

// EditOrderRequest replaces the full item set of a pending order.
type EditOrderRequest struct {
	Items []CartLine `json:"items"`
}

// UpdateStatusRequest is the payload for advancing an order's status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
