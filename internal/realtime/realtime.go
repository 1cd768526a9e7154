// Package realtime carries row-level change signals between the API and
// connected clients. The feed is notify-then-pull: a signal names the table
// and operation, and consumers respond by relisting the table rather than
// trusting the payload. Delivery is at-least-once and unordered relative to
// the consumer's own writes, so re-application must be idempotent.
package realtime

import "context"

// Table identifies which collection changed.
type Table string

const (
	TableOrders   Table = "orders"
	TableProducts Table = "products"
)

// Op is the row-level operation kind.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Change is a single change signal. The ID is informational only; consumers
// refetch the whole table.
type Change struct {
	Table Table  `json:"table"`
	Op    Op     `json:"op"`
	ID    string `json:"id"`
}

// Publisher emits change signals after successful mutations.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Feed is one client session's view of the change stream. Exactly one Feed
// is opened per mounted session and it must be closed when the session ends.
type Feed interface {
	Changes() <-chan Change
	Close() error
}

// NopPublisher discards all signals. Used in tests and brokerless runs.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, c Change) error { return nil }
