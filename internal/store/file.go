package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/model"
)

const (
	jsonIndent   = "  "
	dataFileMode = 0o644
)

// FileStore implements Store on top of a single JSON array file.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a FileStore backed by the file at path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the whole collection. A missing file yields an empty
// collection and a warning rather than an error.
func (s *FileStore) Load(ctx context.Context) ([]model.Product, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load products: %w", ctx.Err())
	default:
	}

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("data file not found, starting with an empty catalog",
			zap.String("path", s.path),
		)
		return []model.Product{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var products []model.Product
	dec := json.NewDecoder(f)
	if err := dec.Decode(&products); err != nil {
		return nil, fmt.Errorf("decode data file %s: %w", s.path, err)
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode data file %s: %w", s.path, ErrTrailingData)
	}
	if products == nil {
		products = []model.Product{}
	}

	s.logger.Debug("products loaded",
		zap.String("path", s.path),
		zap.Int("count", len(products)),
	)

	return products, nil
}

// Save writes the collection as an indented JSON array. The content goes
// to a temporary file in the same directory which then replaces the data
// file, so readers see either the old or the new collection.
func (s *FileStore) Save(ctx context.Context, products []model.Product) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("save products: %w", ctx.Err())
	default:
	}

	data, err := encodeProducts(products)
	if err != nil {
		return fmt.Errorf("encode products: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(dataFileMode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	committed = true

	s.logger.Debug("products saved",
		zap.String("path", s.path),
		zap.Int("count", len(products)),
	)

	return nil
}

// encodeProducts renders products with two-space indentation and without
// escaping HTML or non-ASCII characters.
func encodeProducts(products []model.Product) ([]byte, error) {
	if products == nil {
		products = []model.Product{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsonIndent)
	if err := enc.Encode(products); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
