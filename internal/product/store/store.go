// Package store provides an interface for product storage operations.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product entity in the store.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	CreatedAt time.Time
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// FindAll returns a page of products ordered by ID.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context, offset, limit int32) ([]Product, error)

	// Count returns the total number of products.
	Count(ctx context.Context) (int64, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*Product, error)

	// Create adds a new product and assigns its ID.
	Create(ctx context.Context, name string, price decimal.Decimal) (*Product, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id int64) error
}
