package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
type MemoryStore struct {
	mu       sync.RWMutex
	products []model.Product
}

// NewMemoryStore creates a new MemoryStore seeded with a copy of products.
func NewMemoryStore(products ...model.Product) *MemoryStore {
	return &MemoryStore{
		products: cloneProducts(products),
	}
}

// Load returns a copy of the stored collection.
func (s *MemoryStore) Load(ctx context.Context) ([]model.Product, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load products: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneProducts(s.products), nil
}

// Save replaces the stored collection with a copy of products.
func (s *MemoryStore) Save(ctx context.Context, products []model.Product) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("save products: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = cloneProducts(products)

	return nil
}

func cloneProducts(products []model.Product) []model.Product {
	out := make([]model.Product, len(products))
	copy(out, products)
	return out
}
