// Package store provides persistence for catalog products.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/model"
)

// Store errors.
var (
	ErrInvalidID    = errors.New("product id is not an integer")
	ErrTrailingData = errors.New("unexpected data after the product list")
)

// Store defines the interface for product collection persistence.
// Implementations read and write the whole collection at once.
type Store interface {
	// Load returns every stored product in storage order.
	Load(ctx context.Context) ([]model.Product, error)

	// Save replaces the stored collection with products.
	Save(ctx context.Context, products []model.Product) error
}

// NextID returns the id to assign to a new product: "1" for an empty
// collection, otherwise one more than the largest existing numeric id.
// Ids are not limited to 64 bits.
func NextID(products []model.Product) (string, error) {
	if len(products) == 0 {
		return "1", nil
	}

	var maxID *big.Int
	for i, p := range products {
		id, ok := new(big.Int).SetString(p.ID, 10)
		if !ok {
			return "", fmt.Errorf("product %d id %q: %w", i, p.ID, ErrInvalidID)
		}
		if maxID == nil || id.Cmp(maxID) > 0 {
			maxID = id
		}
	}

	return maxID.Add(maxID, big.NewInt(1)).String(), nil
}

// Append returns a new collection with p added at the end.
// The backing array of products is never written to.
func Append(products []model.Product, p model.Product) []model.Product {
	out := make([]model.Product, len(products), len(products)+1)
	copy(out, products)
	return append(out, p)
}
