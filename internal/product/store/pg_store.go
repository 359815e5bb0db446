package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	perrors "github.com/abgdnv/productdesk/internal/product/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	findAllQuery = `SELECT id, name, price::text, created_at FROM products ORDER BY id LIMIT $1 OFFSET $2`
	countQuery   = `SELECT count(*) FROM products`
	findOneQuery = `SELECT id, name, price::text, created_at FROM products WHERE id = $1`
	createQuery  = `INSERT INTO products (name, price) VALUES ($1, $2::numeric) RETURNING id, name, price::text, created_at`
	deleteQuery  = `DELETE FROM products WHERE id = $1`
)

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// FindAll retrieves a page of products ordered by ID.
func (p *PgStore) FindAll(ctx context.Context, offset, limit int32) ([]Product, error) {
	rows, err := p.db.Query(ctx, findAllQuery, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find all products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find all products: %w", err)
	}
	return products, nil
}

// Count returns the total number of products.
func (p *PgStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.db.QueryRow(ctx, countQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id int64) (*Product, error) {
	product, err := scanProduct(p.db.QueryRow(ctx, findOneQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return &product, nil
}

// Create adds a new product to the system.
func (p *PgStore) Create(ctx context.Context, name string, price decimal.Decimal) (*Product, error) {
	product, err := scanProduct(p.db.QueryRow(ctx, createQuery, name, price.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

// DeleteByID removes a product by its ID.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) DeleteByID(ctx context.Context, id int64) error {
	tag, err := p.db.Exec(ctx, deleteQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return perrors.ErrProductNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		product Product
		price   string
		created time.Time
	)
	if err := row.Scan(&product.ID, &product.Name, &price, &created); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("invalid price %q: %w", price, err)
	}
	product.Price = d
	product.CreatedAt = created
	return product, nil
}
