// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abgdnv/productdesk/internal/product/store"
	"github.com/shopspring/decimal"
)

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// FindAll returns a page of products and the total number of products.
	FindAll(ctx context.Context, offset, limit int32) (*Page, error)

	// FindByID returns a single product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*ProductDto, error)

	// Create adds a new product to the system.
	// Returns error if the product cannot be created.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id int64) error
}

// service implements ProductService and provides methods to manage products.
type service struct {
	store   store.ProductStore
	metrics *Metrics
	logger  *slog.Logger
}

// NewService creates a new instance of ProductService with the provided store.
func NewService(s store.ProductStore, metrics *Metrics, logger *slog.Logger) ProductService {
	return &service{
		store:   s,
		metrics: metrics,
		logger:  logger.With("component", "service"),
	}
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}

// ProductCreateDto is the payload of a create request.
type ProductCreateDto struct {
	Name  string          `json:"name" validate:"required,max=100"`
	Price decimal.Decimal `json:"price" validate:"gt=0,lt=10000000000"`
}

// Page is a slice of the collection together with its total size.
type Page struct {
	Items []ProductDto
	Total int64
}

// FindAll retrieves a page of products.
func (s *service) FindAll(ctx context.Context, offset, limit int32) (*Page, error) {
	products, err := s.store.FindAll(ctx, offset, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error fetching products", "error", err)
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error counting products", "error", err)
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	items := make([]ProductDto, len(products))
	for i, item := range products {
		items[i] = *toDto(&item)
	}
	return &Page{Items: items, Total: total}, nil
}

// FindByID retrieves a product by its ID.
func (s *service) FindByID(ctx context.Context, id int64) (*ProductDto, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find product %d: %w", id, err)
	}
	return toDto(p), nil
}

// Create creates a new product and returns it as a ProductDto.
func (s *service) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	p, err := s.store.Create(ctx, product.Name, product.Price)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating product", "error", err)
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.metrics.productCreated()
	return toDto(p), nil
}

// DeleteByID deletes a product by its ID.
func (s *service) DeleteByID(ctx context.Context, id int64) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	s.metrics.productDeleted()
	return nil
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:    product.ID,
		Name:  product.Name,
		Price: product.Price,
	}
}
