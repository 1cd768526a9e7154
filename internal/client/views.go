package client

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/restaurantcrm/backend/internal/modules/order"
	"github.com/restaurantcrm/backend/internal/modules/product"
	"github.com/restaurantcrm/backend/internal/modules/stats"
	"github.com/restaurantcrm/backend/internal/modules/user"
)

var (
	// ErrNotPayable is the cashier-side hard gate: collecting an order the
	// kitchen has not finished is refused before any network call. The
	// server enforces the same rule.
	ErrNotPayable = errors.New("order is not ready for payment")
	// ErrNotEditable is the waiter-side gate on frozen tickets.
	ErrNotEditable = errors.New("order is no longer pending")
	// ErrUnknownProduct is returned when a cart line names a product the
	// menu does not carry.
	ErrUnknownProduct = errors.New("unknown product in cart")
)

// View is a role-scoped façade over the store.
type View interface {
	Role() user.Role
}

// NewView dispatches role to view construction. Roles are a closed enum, so
// the switch is exhaustive.
func NewView(role user.Role, store *Store) (View, error) {
	switch role {
	case user.RoleWaiter:
		return &WaiterView{store: store}, nil
	case user.RoleChef:
		return &KitchenView{store: store}, nil
	case user.RoleCashier:
		return &CashierView{store: store}, nil
	case user.RoleAdmin:
		return &AdminView{store: store}, nil
	}
	return nil, fmt.Errorf("no view for role %q", role)
}

// ── waiter ───────────────────────────────────────────────────────────────────

// WaiterView builds carts from the available menu and manages pending orders.
type WaiterView struct{ store *Store }

func (v *WaiterView) Role() user.Role { return user.RoleWaiter }

// Menu lists products with stock on hand, name-ascending.
func (v *WaiterView) Menu() []product.Product {
	var menu []product.Product
	for _, p := range v.store.Products() {
		if p.Stock > 0 {
			menu = append(menu, p)
		}
	}
	return menu
}

// CartTotal prices a cart against *current* product prices; the frozen
// order prices only exist once the order is placed.
func (v *WaiterView) CartTotal(lines []order.CartLine) (float64, error) {
	prices := map[string]float64{}
	for _, p := range v.store.Products() {
		prices[p.ID.String()] = p.Price
	}

	var total float64
	for _, line := range lines {
		price, ok := prices[line.ProductID]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownProduct, line.ProductID)
		}
		total += price * float64(line.Quantity)
	}
	return total, nil
}

// ActiveOrders lists every non-paid order, newest first.
func (v *WaiterView) ActiveOrders() []order.Order {
	var active []order.Order
	for _, o := range v.store.Orders() {
		if o.Status != order.StatusPaid {
			active = append(active, o)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.After(active[j].CreatedAt) })
	return active
}

func (v *WaiterView) PlaceOrder(ctx context.Context, table string, lines []order.CartLine) (*order.Order, error) {
	return v.store.CreateOrder(ctx, table, lines)
}

// EditOrder refuses locally once the kitchen has acknowledged; the server
// re-checks regardless.
func (v *WaiterView) EditOrder(ctx context.Context, id string, lines []order.CartLine) (*order.Order, error) {
	if !v.orderPending(id) {
		return nil, ErrNotEditable
	}
	return v.store.EditOrder(ctx, id, lines)
}

func (v *WaiterView) CancelOrder(ctx context.Context, id string) error {
	if !v.orderPending(id) {
		return ErrNotEditable
	}
	return v.store.DeleteOrder(ctx, id)
}

// AcknowledgeDelivery marks a ready order as brought to the table.
func (v *WaiterView) AcknowledgeDelivery(ctx context.Context, id string) (*order.Order, error) {
	return v.store.MarkDelivered(ctx, id)
}

func (v *WaiterView) orderPending(id string) bool {
	for _, o := range v.store.Orders() {
		if o.ID.String() == id {
			return o.Status == order.StatusPending
		}
	}
	return false
}

// ── kitchen ──────────────────────────────────────────────────────────────────

// KitchenView shows the active queue and exposes exactly one forward action
// per order.
type KitchenView struct{ store *Store }

func (v *KitchenView) Role() user.Role { return user.RoleChef }

// Queue lists pending and preparing orders, oldest first so the kitchen
// works tickets in arrival order.
func (v *KitchenView) Queue() []order.Order {
	var queue []order.Order
	for _, o := range v.store.Orders() {
		if o.Status == order.StatusPending || o.Status == order.StatusPreparing {
			queue = append(queue, o)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i].CreatedAt.Before(queue[j].CreatedAt) })
	return queue
}

// NextAction labels the single forward transition for an order's current
// status.
func (v *KitchenView) NextAction(o order.Order) (label string, next order.Status, ok bool) {
	switch o.Status {
	case order.StatusPending:
		return "start preparing", order.StatusPreparing, true
	case order.StatusPreparing:
		return "mark ready", order.StatusReady, true
	}
	return "", "", false
}

// Advance fires the forward transition for the order's current status.
func (v *KitchenView) Advance(ctx context.Context, o order.Order) (*order.Order, error) {
	_, next, ok := v.NextAction(o)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no kitchen action", order.ErrIllegalTransition, o.Status)
	}
	return v.store.UpdateOrderStatus(ctx, o.ID.String(), next)
}

// ── cashier ──────────────────────────────────────────────────────────────────

// CashierView shows unpaid orders and collects payment.
type CashierView struct{ store *Store }

func (v *CashierView) Role() user.Role { return user.RoleCashier }

// Unpaid lists every non-paid order, newest first, so ready orders surface
// alongside ones still in the kitchen.
func (v *CashierView) Unpaid() []order.Order {
	var unpaid []order.Order
	for _, o := range v.store.Orders() {
		if o.Status != order.StatusPaid {
			unpaid = append(unpaid, o)
		}
	}
	sort.Slice(unpaid, func(i, j int) bool { return unpaid[i].CreatedAt.After(unpaid[j].CreatedAt) })
	return unpaid
}

// CanCollect drives the pay control's enabled state; a false here must
// render the control non-interactive, not merely unlabeled.
func (v *CashierView) CanCollect(o order.Order) bool {
	return o.PaymentEligible()
}

// Collect marks an order paid. The gate fires before any network call.
func (v *CashierView) Collect(ctx context.Context, id string) (*order.Order, error) {
	for _, o := range v.store.Orders() {
		if o.ID.String() == id {
			if !v.CanCollect(o) {
				return nil, ErrNotPayable
			}
			return v.store.UpdateOrderStatus(ctx, id, order.StatusPaid)
		}
	}
	return nil, order.ErrOrderNotFound
}

// ── admin ────────────────────────────────────────────────────────────────────

// AdminView combines product CRUD with the dashboard aggregates, computed
// client-side over the in-memory order set.
type AdminView struct{ store *Store }

func (v *AdminView) Role() user.Role { return user.RoleAdmin }

func (v *AdminView) Products() []product.Product { return v.store.Products() }

// Summary aggregates revenue, order count, and the best seller with the date
// filter applied before aggregation.
func (v *AdminView) Summary(f stats.Filter) stats.Summary {
	orders := v.store.Orders()
	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	return stats.Aggregate(refs, f)
}

// Sales lists paid orders inside the filter window, newest first.
func (v *AdminView) Sales(f stats.Filter) []order.Order {
	var sales []order.Order
	for _, o := range v.store.Orders() {
		if o.Status == order.StatusPaid && f.Matches(o.CreatedAt) {
			sales = append(sales, o)
		}
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].CreatedAt.After(sales[j].CreatedAt) })
	return sales
}

func (v *AdminView) CreateProduct(ctx context.Context, req product.CreateProductRequest, img *ImageUpload) (*product.Product, error) {
	p, err := v.store.CreateProduct(ctx, req, img)
	if err != nil {
		v.rollback(ctx)
		return nil, err
	}
	return p, nil
}

func (v *AdminView) UpdateProduct(ctx context.Context, id string, req product.UpdateProductRequest, img *ImageUpload) (*product.Product, error) {
	p, err := v.store.UpdateProduct(ctx, id, req, img)
	if err != nil {
		v.rollback(ctx)
		return nil, err
	}
	return p, nil
}

func (v *AdminView) DeleteProduct(ctx context.Context, id string) error {
	if err := v.store.DeleteProduct(ctx, id); err != nil {
		v.rollback(ctx)
		return err
	}
	return nil
}

// rollback-by-refetch: after a failed write the list may have drifted from
// the backend, so force a relist. A failure here keeps the last-known cache.
func (v *AdminView) rollback(ctx context.Context) {
	_ = v.store.RefreshProducts(ctx)
}
