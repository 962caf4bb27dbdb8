package model

import "testing"

func TestProduct_Summarize(t *testing.T) {
	// Arrange
	p := Product{
		ID:          "7",
		Name:        "Veste",
		Description: "Veste en laine",
		Price:       89.9,
		Category:    "Vêtements",
		Brand:       "Maison",
		Color:       "Bleu",
		Size:        "M",
	}

	// Act
	s := p.Summarize()

	// Assert
	want := Summary{ID: "7", Name: "Veste", Price: 89.9, Category: "Vêtements", Brand: "Maison"}
	if s != want {
		t.Errorf("Summarize() = %+v, want %+v", s, want)
	}
}

func TestSummary_String(t *testing.T) {
	s := Summary{ID: "2", Name: "Lamp", Price: 12, Category: "Home", Brand: "Lumo"}

	want := "ID: 2\nName: Lamp\nPrice: 12.0€\nCategory: Home\nBrand: Lumo"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		want  string
	}{
		{"integral value", 12, "12.0"},
		{"zero", 0, "0.0"},
		{"fractional value", 19.99, "19.99"},
		{"negative value", -3.5, "-3.5"},
		{"large value", 1e21, "1000000000000000000000.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPrice(tt.price); got != tt.want {
				t.Errorf("FormatPrice(%v) = %q, want %q", tt.price, got, tt.want)
			}
		})
	}
}
