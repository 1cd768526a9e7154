package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/restaurantcrm/backend/internal/modules/order"
	"github.com/restaurantcrm/backend/internal/modules/product"
	"github.com/restaurantcrm/backend/internal/realtime"
)

// fakeFeed hands out a buffered channel the test pushes changes into.
type fakeFeed struct {
	ch        chan realtime.Change
	closeOnce sync.Once
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{ch: make(chan realtime.Change, 16)}
}

func (f *fakeFeed) Changes() <-chan realtime.Change { return f.ch }

func (f *fakeFeed) Close() error {
	f.closeOnce.Do(func() { close(f.ch) })
	return nil
}

func (f *fakeFeed) emit(table realtime.Table) {
	f.ch <- realtime.Change{Table: table, Op: realtime.OpUpdate, ID: uuid.New().String()}
}

// fakeAPI is the backend stand-in: mutating calls update its state the way
// the real server would, and list calls are counted so tests can assert how
// often the store relists.
type fakeAPI struct {
	mu       sync.Mutex
	products []*product.Product
	orders   []*order.Order

	listProductCalls int
	listOrderCalls   int
	statusCalls      int
	updateOrderCalls int

	failingProductLists int  // fail this many leading ListProducts calls
	deleteProductErr    error
	deleteOrderErr      error
}

func newFakeAPI() *fakeAPI { return &fakeAPI{} }

func (f *fakeAPI) addProduct(name string, price float64, stock int) *product.Product {
	p := &product.Product{ID: uuid.New(), Name: name, Price: price, Stock: stock}
	f.products = append(f.products, p)
	return p
}

func (f *fakeAPI) addOrder(status order.Status, at time.Time, items ...*order.OrderItem) *order.Order {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	o := &order.Order{ID: uuid.New(), TableNumber: "1", Status: status, Total: total, CreatedAt: at, Items: items}
	f.orders = append([]*order.Order{o}, f.orders...)
	return o
}

func (f *fakeAPI) ListProducts(ctx context.Context) ([]*product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listProductCalls++
	if f.failingProductLists > 0 {
		f.failingProductLists--
		return nil, errors.New("backend unavailable")
	}
	return append([]*product.Product(nil), f.products...), nil
}

func (f *fakeAPI) ListOrders(ctx context.Context) ([]*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listOrderCalls++
	return append([]*order.Order(nil), f.orders...), nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, table string, items []order.CartLine) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := &order.Order{ID: uuid.New(), TableNumber: table, Status: order.StatusPending, CreatedAt: time.Now()}
	f.orders = append([]*order.Order{o}, f.orders...)
	return o, nil
}

func (f *fakeAPI) UpdateOrder(ctx context.Context, id string, items []order.CartLine) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateOrderCalls++
	for _, o := range f.orders {
		if o.ID.String() == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (f *fakeAPI) DeleteOrder(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteOrderErr != nil {
		return f.deleteOrderErr
	}
	for i, o := range f.orders {
		if o.ID.String() == id {
			f.orders = append(f.orders[:i], f.orders[i+1:]...)
			return nil
		}
	}
	return order.ErrOrderNotFound
}

func (f *fakeAPI) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	for _, o := range f.orders {
		if o.ID.String() == id {
			o.Status = status
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (f *fakeAPI) MarkDelivered(ctx context.Context, id string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID.String() == id {
			o.Delivered = true
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (f *fakeAPI) CreateProduct(ctx context.Context, req product.CreateProductRequest, img *ImageUpload) (*product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &product.Product{ID: uuid.New(), Name: req.Name, Category: req.Category, Price: req.Price, Stock: req.Stock}
	f.products = append(f.products, p)
	return p, nil
}

func (f *fakeAPI) UpdateProduct(ctx context.Context, id string, req product.UpdateProductRequest, img *ImageUpload) (*product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.products {
		if p.ID.String() == id {
			cp := *p
			cp.Name, cp.Category, cp.Price, cp.Stock = req.Name, req.Category, req.Price, req.Stock
			f.products[i] = &cp
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("no such product")
}

func (f *fakeAPI) DeleteProduct(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteProductErr != nil {
		return f.deleteProductErr
	}
	for i, p := range f.products {
		if p.ID.String() == id {
			f.products = append(f.products[:i], f.products[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no such product")
}

func (f *fakeAPI) productListCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listProductCalls
}

func (f *fakeAPI) orderListCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listOrderCalls
}

func newTestStore(t *testing.T, api *fakeAPI) (*Store, *fakeFeed) {
	t.Helper()
	feed := newFakeFeed()
	s, err := NewStore(context.Background(), api, feed)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, feed
}

func TestNewStore_InitialFetch(t *testing.T) {
	api := newFakeAPI()
	api.addProduct("burger", 12.50, 5)
	api.addOrder(order.StatusPending, time.Now())

	s, _ := newTestStore(t, api)

	if got := s.Products(); len(got) != 1 || got[0].Name != "burger" {
		t.Errorf("products after init = %+v", got)
	}
	if got := s.Orders(); len(got) != 1 || got[0].Status != order.StatusPending {
		t.Errorf("orders after init = %+v", got)
	}
}

func TestNewStore_RetriesTransientStartupFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("waits through the retry backoff")
	}

	api := newFakeAPI()
	api.addProduct("soup", 8.00, 3)
	api.failingProductLists = 1

	s, _ := newTestStore(t, api)

	if got := s.Products(); len(got) != 1 {
		t.Errorf("products after retry = %+v", got)
	}
	if n := api.productListCount(); n != 2 {
		t.Errorf("ListProducts calls = %d, want 2 (one failure, one success)", n)
	}
}

func TestNewStore_GivesUpAfterBoundedRetries(t *testing.T) {
	if testing.Short() {
		t.Skip("waits through the retry backoff")
	}

	api := newFakeAPI()
	api.failingProductLists = initAttempts

	_, err := NewStore(context.Background(), api, newFakeFeed())
	if err == nil {
		t.Fatal("expected startup failure")
	}
	if n := api.productListCount(); n != initAttempts {
		t.Errorf("ListProducts calls = %d, want %d", n, initAttempts)
	}
}

func TestNewStore_StopsRetryingOnCanceledContext(t *testing.T) {
	api := newFakeAPI()
	api.failingProductLists = initAttempts

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStore(ctx, api, newFakeFeed())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if n := api.productListCount(); n != 1 {
		t.Errorf("ListProducts calls = %d, want 1 (no backoff waits after cancel)", n)
	}
}

func TestStore_BurstOfChangesCostsOneRelist(t *testing.T) {
	api := newFakeAPI()
	api.addOrder(order.StatusPending, time.Now())
	s, feed := newTestStore(t, api)

	before := api.orderListCount()
	api.addOrder(order.StatusPreparing, time.Now())
	for i := 0; i < 5; i++ {
		feed.emit(realtime.TableOrders)
	}

	time.Sleep(3 * debounceWindow)

	if n := api.orderListCount(); n != before+1 {
		t.Errorf("ListOrders calls after burst = %d, want %d", n, before+1)
	}
	if got := s.Orders(); len(got) != 2 {
		t.Errorf("orders after relist = %d, want 2", len(got))
	}
}

func TestStore_RepeatedSignalsConverge(t *testing.T) {
	// A relist replaces the collection wholesale, so re-delivered signals
	// for the same change cannot duplicate records.
	api := newFakeAPI()
	s, feed := newTestStore(t, api)

	api.addOrder(order.StatusPending, time.Now())
	feed.emit(realtime.TableOrders)
	time.Sleep(3 * debounceWindow)

	feed.emit(realtime.TableOrders)
	time.Sleep(3 * debounceWindow)

	if got := s.Orders(); len(got) != 1 {
		t.Errorf("orders after repeated signals = %d, want 1", len(got))
	}
}

func TestStore_CreateOrderSplicesToFront(t *testing.T) {
	api := newFakeAPI()
	api.addOrder(order.StatusPending, time.Now().Add(-time.Hour))
	s, _ := newTestStore(t, api)

	placed, err := s.CreateOrder(context.Background(), "4", []order.CartLine{{ProductID: uuid.New().String(), Quantity: 1}})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	got := s.Orders()
	if len(got) != 2 {
		t.Fatalf("orders = %d, want 2", len(got))
	}
	if got[0].ID != placed.ID {
		t.Error("confirmed order must appear at the front before the realtime echo")
	}
}

func TestStore_DeleteOrderFailureKeepsCache(t *testing.T) {
	api := newFakeAPI()
	o := api.addOrder(order.StatusPending, time.Now())
	s, _ := newTestStore(t, api)

	api.deleteOrderErr = errors.New("backend unavailable")
	if err := s.DeleteOrder(context.Background(), o.ID.String()); err == nil {
		t.Fatal("expected delete failure")
	}
	if got := s.Orders(); len(got) != 1 {
		t.Errorf("failed delete must leave the cache untouched, got %d orders", len(got))
	}

	api.deleteOrderErr = nil
	if err := s.DeleteOrder(context.Background(), o.ID.String()); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	if got := s.Orders(); len(got) != 0 {
		t.Errorf("orders after delete = %d, want 0", len(got))
	}
}

func TestStore_CreateProductKeepsNameOrdering(t *testing.T) {
	api := newFakeAPI()
	api.addProduct("burger", 12.50, 5)
	api.addProduct("tea", 3.00, 9)
	s, _ := newTestStore(t, api)

	if _, err := s.CreateProduct(context.Background(), product.CreateProductRequest{Name: "cola", Price: 5.00, Stock: 10}, nil); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	got := s.Products()
	names := []string{"burger", "cola", "tea"}
	if len(got) != len(names) {
		t.Fatalf("products = %d, want %d", len(got), len(names))
	}
	for i, want := range names {
		if got[i].Name != want {
			t.Errorf("products[%d] = %q, want %q", i, got[i].Name, want)
		}
	}
}

func TestStore_CloseIsSafeToRepeat(t *testing.T) {
	api := newFakeAPI()
	feed := newFakeFeed()
	s, err := NewStore(context.Background(), api, feed)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
