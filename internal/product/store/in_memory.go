package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/abgdnv/productdesk/internal/product/errors"
	"github.com/shopspring/decimal"
)

// inMemory implements ProductStore using a slice kept in insertion order.
type inMemory struct {
	mu       sync.RWMutex
	products []Product
	nextID   int64
	now      func() time.Time
}

// NewInMemoryStore creates a new instance of ProductStore holding the given products.
// Seed products get sequential IDs starting at 1; their ID fields are ignored.
func NewInMemoryStore(seed ...Product) ProductStore {
	s := &inMemory{
		products: make([]Product, 0, len(seed)),
		nextID:   1,
		now:      time.Now,
	}
	for _, p := range seed {
		s.add(p.Name, p.Price)
	}
	return s
}

// DefaultSeed returns the products a fresh mock backend starts with.
func DefaultSeed() []Product {
	return []Product{
		{Name: "Produto 1", Price: decimal.NewFromInt(100)},
		{Name: "Produto 2", Price: decimal.NewFromInt(200)},
	}
}

// FindAll retrieves a page of products.
func (s *inMemory) FindAll(_ context.Context, offset, limit int32) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := min(int(offset), len(s.products))
	end := min(start+int(limit), len(s.products))
	return slices.Clone(s.products[start:end]), nil
}

// Count returns the number of products.
func (s *inMemory) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.products)), nil
}

// FindByID retrieves a product by its ID.
func (s *inMemory) FindByID(_ context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, errors.ErrProductNotFound
	}
	p := s.products[i]
	return &p, nil
}

// Create creates a new product and returns it.
func (s *inMemory) Create(_ context.Context, name string, price decimal.Decimal) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.add(name, price)
	return &p, nil
}

// DeleteByID deletes a product by its ID.
func (s *inMemory) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return errors.ErrProductNotFound
	}
	s.products = slices.Delete(s.products, i, i+1)
	return nil
}

// add must be called with the lock held.
func (s *inMemory) add(name string, price decimal.Decimal) Product {
	p := Product{
		ID:        s.nextID,
		Name:      name,
		Price:     price.Round(2),
		CreatedAt: s.now(),
	}
	s.nextID++
	s.products = append(s.products, p)
	return p
}

func (s *inMemory) indexOf(id int64) int {
	return slices.IndexFunc(s.products, func(p Product) bool {
		return p.ID == id
	})
}
