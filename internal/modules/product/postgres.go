package product

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) ListProducts(ctx context.Context) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, category, price, stock, image_url, created_at, updated_at
		FROM products ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *postgresRepo) GetProductByID(ctx context.Context, id string) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	p := &Product{}
	var imageURL sql.NullString
	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, category, price, stock, image_url, created_at, updated_at
		FROM products WHERE id=$1`, uid).Scan(
		&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock, &imageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ImageURL = imageURL.String
	return p, nil
}

func (r *postgresRepo) CreateProduct(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, price, stock, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Category, p.Price, p.Stock, nullableString(p.ImageURL))
	return err
}

func (r *postgresRepo) UpdateProduct(ctx context.Context, p *Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET name=$1, category=$2, price=$3, stock=$4, image_url=$5, updated_at=$6
		WHERE id=$7`,
		p.Name, p.Category, p.Price, p.Stock, nullableString(p.ImageURL), time.Now(), p.ID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *postgresRepo) DeleteProduct(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, uid)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *postgresRepo) CountOrderItemRefs(ctx context.Context, id string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_items WHERE product_id=$1`, id).Scan(&count)
	return count, err
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*Product, error) {
	p := &Product{}
	var imageURL sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock, &imageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ImageURL = imageURL.String
	return p, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
