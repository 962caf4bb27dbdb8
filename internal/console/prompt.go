// Package console reads product fields interactively from a text console.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/model"
)

// Prompt labels.
const (
	LabelName        = "Product name: "
	LabelDescription = "Description: "
	LabelPrice       = "Price: "
	LabelCategory    = "Category: "
	LabelBrand       = "Brand: "
	LabelColor       = "Color: "
	LabelSize        = "Size: "

	InvalidPriceMessage = "Invalid price. Please enter a number."
)

// Prompter writes prompts to out and reads one answer line per prompt.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter reading answers from in.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Line prints label and returns the next input line with surrounding
// whitespace removed. A final line without a newline is accepted;
// io.ErrUnexpectedEOF is returned once input is exhausted.
func (p *Prompter) Line(label string) (string, error) {
	if _, err := fmt.Fprint(p.out, label); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	line, err := p.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read answer: %w", err)
		}
		if line == "" {
			return "", io.ErrUnexpectedEOF
		}
	}

	return strings.TrimSpace(line), nil
}

// Price prompts until the answer parses as a finite number.
func (p *Prompter) Price(label string) (float64, error) {
	for {
		answer, err := p.Line(label)
		if err != nil {
			return 0, err
		}

		price, err := parsePrice(answer)
		if err == nil {
			return price, nil
		}

		if _, err := fmt.Fprintln(p.out, InvalidPriceMessage); err != nil {
			return 0, fmt.Errorf("write prompt: %w", err)
		}
	}
}

// ReadProduct prompts for every product field except the id.
func (p *Prompter) ReadProduct() (model.Product, error) {
	var (
		product model.Product
		err     error
	)

	if product.Name, err = p.Line(LabelName); err != nil {
		return model.Product{}, err
	}
	if product.Description, err = p.Line(LabelDescription); err != nil {
		return model.Product{}, err
	}
	if product.Price, err = p.Price(LabelPrice); err != nil {
		return model.Product{}, err
	}
	if product.Category, err = p.Line(LabelCategory); err != nil {
		return model.Product{}, err
	}
	if product.Brand, err = p.Line(LabelBrand); err != nil {
		return model.Product{}, err
	}
	if product.Color, err = p.Line(LabelColor); err != nil {
		return model.Product{}, err
	}
	if product.Size, err = p.Line(LabelSize); err != nil {
		return model.Product{}, err
	}

	return product, nil
}

// parsePrice accepts decimal and exponent notation. NaN and infinities
// are refused because they cannot be stored as JSON numbers.
func parsePrice(s string) (float64, error) {
	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("price %q is not finite", s)
	}
	return price, nil
}
