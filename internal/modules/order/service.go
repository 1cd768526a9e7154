package order

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/restaurantcrm/backend/internal/modules/user"
	"github.com/restaurantcrm/backend/internal/realtime"
)

var (
	// ErrOrderFrozen is returned when editing or deleting an order the
	// kitchen has already acknowledged.
	ErrOrderFrozen = errors.New("order is no longer pending and cannot be changed")
	// ErrEmptyOrder is returned for an order with no items.
	ErrEmptyOrder = errors.New("order must contain at least one item")
	// ErrTableRequired is returned when no table number is given.
	ErrTableRequired = errors.New("table_number is required")
	// ErrNotReady is returned when a waiter acknowledges delivery of an order
	// the kitchen has not finished.
	ErrNotReady = errors.New("order is not ready yet")
)

// Service defines the order lifecycle business logic. Every operation takes
// the acting role; the transition table decides who may do what.
type Service interface {
	ListOrders(ctx context.Context) ([]*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)

	// PlaceOrder snapshots current product names and prices onto the lines,
	// computes the total server-side, and persists everything atomically
	// (including stock decrements).
	PlaceOrder(ctx context.Context, actor user.Role, req PlaceOrderRequest) (*Order, error)

	// EditOrder replaces the item set of a pending order and refreshes the
	// total. Stock deltas are not re-validated.
	EditOrder(ctx context.Context, actor user.Role, id string, req EditOrderRequest) (*Order, error)

	// DeleteOrder removes a pending order entirely. Stock is not restored.
	DeleteOrder(ctx context.Context, actor user.Role, id string) error

	// AdvanceStatus applies one lifecycle transition. Replaying an applied
	// transition is a no-op, not an error.
	AdvanceStatus(ctx context.Context, actor user.Role, id string, req UpdateStatusRequest) (*Order, error)

	// MarkDelivered records the waiter's pickup acknowledgment on a ready
	// order without touching payment status.
	MarkDelivered(ctx context.Context, actor user.Role, id string) (*Order, error)
}

type service struct {
	repo Repository
	feed realtime.Publisher
}

// NewService creates a new order service.
func NewService(repo Repository, feed realtime.Publisher) Service {
	return &service{repo: repo, feed: feed}
}

func (s *service) ListOrders(ctx context.Context) ([]*Order, error) {
	return s.repo.ListOrders(ctx)
}

func (s *service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

func (s *service) PlaceOrder(ctx context.Context, actor user.Role, req PlaceOrderRequest) (*Order, error) {
	if actor != user.RoleWaiter && actor != user.RoleAdmin {
		return nil, fmt.Errorf("%w: %s may not place orders", ErrRoleNotAllowed, actor)
	}
	if req.TableNumber == "" {
		return nil, ErrTableRequired
	}

	items, total, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:          uuid.New(),
		TableNumber: req.TableNumber,
		Status:      StatusPending,
		Total:       total,
		Items:       items,
	}
	for _, item := range o.Items {
		item.OrderID = o.ID
	}

	if err := s.repo.CreateFullOrder(ctx, o); err != nil {
		return nil, err
	}

	s.notify(ctx, realtime.OpInsert, o.ID.String())
	return o, nil
}

func (s *service) EditOrder(ctx context.Context, actor user.Role, id string, req EditOrderRequest) (*Order, error) {
	if actor != user.RoleWaiter && actor != user.RoleAdmin {
		return nil, fmt.Errorf("%w: %s may not edit orders", ErrRoleNotAllowed, actor)
	}

	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Editable() {
		return nil, ErrOrderFrozen
	}

	items, total, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		item.OrderID = o.ID
	}

	if err := s.repo.ReplaceItems(ctx, id, items, total); err != nil {
		return nil, err
	}
	o.Items = items
	o.Total = total

	s.notify(ctx, realtime.OpUpdate, id)
	return o, nil
}

func (s *service) DeleteOrder(ctx context.Context, actor user.Role, id string) error {
	if actor != user.RoleWaiter && actor != user.RoleAdmin {
		return fmt.Errorf("%w: %s may not delete orders", ErrRoleNotAllowed, actor)
	}

	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return err
	}
	if !o.Deletable() {
		return ErrOrderFrozen
	}

	if err := s.repo.DeleteOrder(ctx, id); err != nil {
		return err
	}

	s.notify(ctx, realtime.OpDelete, id)
	return nil
}

func (s *service) AdvanceStatus(ctx context.Context, actor user.Role, id string, req UpdateStatusRequest) (*Order, error) {
	next, err := NormalizeStatus(req.Status)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applied, err := CanTransition(o.Status, next, actor)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Replay of an already-applied transition: at-least-once delivery
		// makes this common, so it succeeds without a write.
		return o, nil
	}

	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, err
	}
	o.Status = next

	s.notify(ctx, realtime.OpUpdate, id)
	return o, nil
}

func (s *service) MarkDelivered(ctx context.Context, actor user.Role, id string) (*Order, error) {
	if actor != user.RoleWaiter && actor != user.RoleAdmin {
		return nil, fmt.Errorf("%w: %s may not acknowledge delivery", ErrRoleNotAllowed, actor)
	}

	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Delivered {
		return o, nil
	}
	if o.Status != StatusReady && o.Status != StatusPaid {
		return nil, ErrNotReady
	}

	if err := s.repo.MarkDelivered(ctx, id); err != nil {
		return nil, err
	}
	o.Delivered = true

	s.notify(ctx, realtime.OpUpdate, id)
	return o, nil
}

// buildItems snapshots the current name and unit price of each cart line and
// returns the lines plus their summed total.
func (s *service) buildItems(ctx context.Context, lines []CartLine) ([]*OrderItem, float64, error) {
	if len(lines) == 0 {
		return nil, 0, ErrEmptyOrder
	}

	var items []*OrderItem
	var total float64
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, 0, fmt.Errorf("quantity must be > 0 for product %s", line.ProductID)
		}
		snap, err := s.repo.GetProductSnapshot(ctx, line.ProductID)
		if err != nil {
			return nil, 0, fmt.Errorf("product %s not found: %w", line.ProductID, err)
		}
		pid, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid product_id: %w", err)
		}

		total += snap.Price * float64(line.Quantity)
		items = append(items, &OrderItem{
			ID:          uuid.New(),
			ProductID:   pid,
			ProductName: snap.Name,
			Quantity:    line.Quantity,
			Price:       snap.Price,
		})
	}
	return items, round2(total), nil
}

func (s *service) notify(ctx context.Context, op realtime.Op, id string) {
	c := realtime.Change{Table: realtime.TableOrders, Op: op, ID: id}
	if err := s.feed.Publish(ctx, c); err != nil {
		log.Printf("realtime publish failed: %v", err)
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
