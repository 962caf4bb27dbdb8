// Package model defines data structures used throughout the application.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Product is a single catalog record as persisted in the data file.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand"`
	Color       string  `json:"color"`
	Size        string  `json:"size"`
}

// Summary is the human-readable projection of a Product used in listings.
type Summary struct {
	ID       string
	Name     string
	Price    float64
	Category string
	Brand    string
}

// Summarize builds the listing summary of p.
func (p Product) Summarize() Summary {
	return Summary{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Category: p.Category,
		Brand:    p.Brand,
	}
}

// String renders the summary as one "Label: value" line per field.
func (s Summary) String() string {
	return fmt.Sprintf("ID: %s\nName: %s\nPrice: %s€\nCategory: %s\nBrand: %s",
		s.ID, s.Name, FormatPrice(s.Price), s.Category, s.Brand)
}

// FormatPrice prints a price with the shortest exact decimal form,
// always keeping a fractional part ("12" becomes "12.0").
func FormatPrice(price float64) string {
	out := strconv.FormatFloat(price, 'f', -1, 64)
	if strings.Contains(out, ".") {
		return out
	}
	return out + ".0"
}
