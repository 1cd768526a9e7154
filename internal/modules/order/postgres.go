package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const orderColumns = `id, table_number, status, total, delivered, created_at`

func (r *postgresRepo) ListOrders(ctx context.Context) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	byID := map[uuid.UUID]*Order{}
	for rows.Next() {
		o := &Order{}
		if err := rows.Scan(&o.ID, &o.TableNumber, &o.Status, &o.Total, &o.Delivered, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Items = []*OrderItem{}
		orders = append(orders, o)
		byID[o.ID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// One pass over all items, joined with the live product name. The unit
	// price comes from the item row (the order-time snapshot), never from
	// the product row.
	itemRows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.order_id, i.product_id, COALESCE(p.name, 'unknown'), i.quantity, i.price
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		ORDER BY i.id`)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item := &OrderItem{}
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return orders, itemRows.Err()
}

func (r *postgresRepo) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	o := &Order{}
	err = r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id=$1`, uid).Scan(
		&o.ID, &o.TableNumber, &o.Status, &o.Total, &o.Delivered, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.order_id, i.product_id, COALESCE(p.name, 'unknown'), i.quantity, i.price
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id=$1
		ORDER BY i.id`, uid)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	o.Items = []*OrderItem{}
	for itemRows.Next() {
		item := &OrderItem{}
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	return o, itemRows.Err()
}

// CreateFullOrder is the create_full_order procedure: order row, item rows,
// and stock decrements all commit or all roll back.
func (r *postgresRepo) CreateFullOrder(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, table_number, status, total)
		VALUES ($1, $2, $3, $4)`,
		o.ID, o.TableNumber, o.Status, o.Total)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)`,
			item.ID, o.ID, item.ProductID, item.Quantity, item.Price)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}

		// Conditional decrement: zero rows affected means the stock guard
		// failed and the whole order must not exist.
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $1, updated_at = $2
			WHERE id = $3 AND stock >= $1`,
			item.Quantity, time.Now(), item.ProductID)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		rows, _ := res.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("%w for product %s", ErrInsufficientStock, item.ProductID)
		}
	}

	return tx.Commit()
}

func (r *postgresRepo) ReplaceItems(ctx context.Context, orderID string, items []*OrderItem, total float64) error {
	uid, err := uuid.Parse(orderID)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id=$1`, uid); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)`,
			item.ID, uid, item.ProductID, item.Quantity, item.Price)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET total=$1, updated_at=$2 WHERE id=$3`, total, time.Now(), uid)
	if err != nil {
		return fmt.Errorf("update total: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrOrderNotFound
	}

	return tx.Commit()
}

func (r *postgresRepo) DeleteOrder(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id=$1`, uid); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id=$1`, uid)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		// Items-gone-but-order-orphaned would be worse than a no-op, so the
		// rollback on return keeps the order fully intact.
		return ErrOrderNotFound
	}

	return tx.Commit()
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status Status) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3`, status, time.Now(), uid)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepo) MarkDelivered(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET delivered=TRUE, updated_at=$1 WHERE id=$2`, time.Now(), uid)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepo) GetProductSnapshot(ctx context.Context, productID string) (*ProductSnapshot, error) {
	uid, err := uuid.Parse(productID)
	if err != nil {
		return nil, err
	}
	snap := &ProductSnapshot{}
	err = r.db.QueryRowContext(ctx,
		`SELECT name, price FROM products WHERE id=$1`, uid).Scan(&snap.Name, &snap.Price)
	if err != nil {
		return nil, err
	}
	return snap, nil
}
