package client

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/restaurantcrm/backend/internal/modules/order"
	"github.com/restaurantcrm/backend/internal/modules/product"
	"github.com/restaurantcrm/backend/internal/realtime"
)

const (
	initAttempts = 3
	initBackoff  = 2 * time.Second

	// debounceWindow folds a burst of change signals into one relist.
	debounceWindow = 200 * time.Millisecond
)

// Store is the single in-memory source of truth for one client session.
// Reads return snapshots; writes go through the named mutation operations,
// which call the gateway first and reconcile the cache on success. Change
// signals from the realtime feed trigger a debounced full relist of the
// affected table. Re-application is idempotent because a relist replaces
// the collection wholesale.
type Store struct {
	api  API
	feed realtime.Feed

	mu       sync.RWMutex
	products []*product.Product
	orders   []*order.Order

	tmu    sync.Mutex
	timers map[realtime.Table]*time.Timer

	done      chan struct{}
	closeOnce sync.Once
}

// NewStore performs the initial full fetch of both collections, retrying a
// bounded number of times with a fixed backoff, and then starts consuming
// the feed. Transient startup failures are expected; spinning forever is
// not.
func NewStore(ctx context.Context, api API, feed realtime.Feed) (*Store, error) {
	s := &Store{
		api:    api,
		feed:   feed,
		timers: map[realtime.Table]*time.Timer{},
		done:   make(chan struct{}),
	}

	var err error
	for attempt := 1; attempt <= initAttempts; attempt++ {
		if err = s.fetchAll(ctx); err == nil {
			break
		}
		if attempt == initAttempts {
			return nil, fmt.Errorf("initial fetch failed after %d attempts: %w", initAttempts, err)
		}
		select {
		case <-time.After(initBackoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	go s.consume()
	return s, nil
}

// Close tears down the subscription. The session must call it exactly once
// on unmount to avoid leaked server-side subscriptions and duplicate update
// storms on remount.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.tmu.Lock()
		for _, t := range s.timers {
			t.Stop()
		}
		s.tmu.Unlock()
		err = s.feed.Close()
	})
	return err
}

// Products returns a snapshot of the cached products, name-ascending.
func (s *Store) Products() []product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]product.Product, len(s.products))
	for i, p := range s.products {
		out[i] = *p
	}
	return out
}

// Orders returns a deep snapshot of the cached orders, newest first.
func (s *Store) Orders() []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]order.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = *o
		items := make([]*order.OrderItem, len(o.Items))
		for j, item := range o.Items {
			cp := *item
			items[j] = &cp
		}
		out[i].Items = items
	}
	return out
}

// ── mutation operations ──────────────────────────────────────────────────────

// CreateOrder places an order and splices the confirmed record to the front
// of the cache, so it appears before the realtime echo lands.
func (s *Store) CreateOrder(ctx context.Context, table string, items []order.CartLine) (*order.Order, error) {
	o, err := s.api.CreateOrder(ctx, table, items)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.orders = append([]*order.Order{o}, s.orders...)
	s.mu.Unlock()
	return o, nil
}

// EditOrder replaces a pending order's items and updates the cached record.
func (s *Store) EditOrder(ctx context.Context, id string, items []order.CartLine) (*order.Order, error) {
	o, err := s.api.UpdateOrder(ctx, id, items)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for i, cached := range s.orders {
		if cached.ID.String() == id {
			s.orders[i] = o
			break
		}
	}
	s.mu.Unlock()
	return o, nil
}

// DeleteOrder removes a pending order from the backend and the cache.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	if err := s.api.DeleteOrder(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	for i, cached := range s.orders {
		if cached.ID.String() == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// UpdateOrderStatus writes the transition and leaves cache reconciliation to
// the realtime echo (one round-trip at most).
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	return s.api.UpdateOrderStatus(ctx, id, status)
}

// MarkDelivered records the waiter pickup acknowledgment; the echo refreshes
// the cache.
func (s *Store) MarkDelivered(ctx context.Context, id string) (*order.Order, error) {
	return s.api.MarkDelivered(ctx, id)
}

// CreateProduct adds a product and splices it into the cache keeping the
// name ordering.
func (s *Store) CreateProduct(ctx context.Context, req product.CreateProductRequest, img *ImageUpload) (*product.Product, error) {
	p, err := s.api.CreateProduct(ctx, req, img)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.products = append(s.products, p)
	sort.Slice(s.products, func(i, j int) bool { return s.products[i].Name < s.products[j].Name })
	s.mu.Unlock()
	return p, nil
}

// UpdateProduct edits a product and replaces the cached record in place.
func (s *Store) UpdateProduct(ctx context.Context, id string, req product.UpdateProductRequest, img *ImageUpload) (*product.Product, error) {
	p, err := s.api.UpdateProduct(ctx, id, req, img)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for i, cached := range s.products {
		if cached.ID.String() == id {
			s.products[i] = p
			break
		}
	}
	sort.Slice(s.products, func(i, j int) bool { return s.products[i].Name < s.products[j].Name })
	s.mu.Unlock()
	return p, nil
}

// DeleteProduct removes a product. A domain refusal (sales history) leaves
// both backend and cache untouched and surfaces the backend's reason.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	if err := s.api.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	for i, cached := range s.products {
		if cached.ID.String() == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// RefreshProducts forces a relist, e.g. to roll back an optimistic admin
// edit after a write failure.
func (s *Store) RefreshProducts(ctx context.Context) error {
	products, err := s.api.ListProducts(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.products = products
	s.mu.Unlock()
	return nil
}

// RefreshOrders forces a relist of the order set.
func (s *Store) RefreshOrders(ctx context.Context) error {
	orders, err := s.api.ListOrders(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.orders = orders
	s.mu.Unlock()
	return nil
}

// ── feed handling ────────────────────────────────────────────────────────────

func (s *Store) consume() {
	for {
		select {
		case c, ok := <-s.feed.Changes():
			if !ok {
				return
			}
			s.scheduleRefetch(c.Table)
		case <-s.done:
			return
		}
	}
}

// scheduleRefetch debounces signals per table: a burst of changes inside the
// window costs one relist.
func (s *Store) scheduleRefetch(table realtime.Table) {
	s.tmu.Lock()
	defer s.tmu.Unlock()

	if t, ok := s.timers[table]; ok {
		t.Reset(debounceWindow)
		return
	}
	s.timers[table] = time.AfterFunc(debounceWindow, func() {
		s.tmu.Lock()
		delete(s.timers, table)
		s.tmu.Unlock()
		s.refetch(table)
	})
}

// refetch relists one table. On failure the last-known cache is kept; the
// next signal or manual refresh reconciles.
func (s *Store) refetch(table realtime.Table) {
	select {
	case <-s.done:
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch table {
	case realtime.TableProducts:
		err = s.RefreshProducts(ctx)
	case realtime.TableOrders:
		err = s.RefreshOrders(ctx)
	}
	if err != nil {
		log.Printf("relist %s failed: %v", table, err)
	}
}

func (s *Store) fetchAll(ctx context.Context) error {
	products, err := s.api.ListProducts(ctx)
	if err != nil {
		return err
	}
	orders, err := s.api.ListOrders(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.products = products
	s.orders = orders
	s.mu.Unlock()
	return nil
}
