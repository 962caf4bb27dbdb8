// Package catalog implements the product catalog operations on top of a
// store.Store: adding a record with the next numeric id and listing.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/model"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/store"
)

// ErrProductNotFound is returned when no product has the requested id.
var ErrProductNotFound = errors.New("product not found")

// Catalog coordinates loading, id assignment and saving of products.
type Catalog struct {
	store  store.Store
	logger *zap.Logger
}

// New creates a Catalog backed by s.
func New(s store.Store, logger *zap.Logger) *Catalog {
	return &Catalog{
		store:  s,
		logger: logger,
	}
}

// Add stores p under a freshly assigned id and returns the stored product
// together with the collection size after the write. Any id already set
// on p is replaced.
func (c *Catalog) Add(ctx context.Context, p model.Product) (model.Product, int, error) {
	products, err := c.store.Load(ctx)
	if err != nil {
		return model.Product{}, 0, fmt.Errorf("add product: %w", err)
	}

	id, err := store.NextID(products)
	if err != nil {
		return model.Product{}, 0, fmt.Errorf("add product: %w", err)
	}
	p.ID = id

	products = store.Append(products, p)
	if err := c.store.Save(ctx, products); err != nil {
		return model.Product{}, 0, fmt.Errorf("add product: %w", err)
	}

	c.logger.Info("product added",
		zap.String("id", p.ID),
		zap.String("name", p.Name),
		zap.Int("total", len(products)),
	)

	return p, len(products), nil
}

// Products returns the whole collection in storage order.
func (c *Catalog) Products(ctx context.Context) ([]model.Product, error) {
	products, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Get returns the product with the given id.
func (c *Catalog) Get(ctx context.Context, id string) (model.Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return model.Product{}, err
	}

	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}

	return model.Product{}, ErrProductNotFound
}

// List loads the collection and returns a sequence of summaries, one per
// product in storage order. Each call reads the store again; the returned
// sequence itself may be ranged over any number of times.
func (c *Catalog) List(ctx context.Context) (iter.Seq[model.Summary], int, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return nil, 0, err
	}

	seq := func(yield func(model.Summary) bool) {
		for _, p := range products {
			if !yield(p.Summarize()) {
				return
			}
		}
	}

	return seq, len(products), nil
}
