package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONL writes one JSON object per record, newline-delimited.
type JSONL struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewJSONLFile opens (or creates) path in append mode.
func NewJSONLFile(path string) (*JSONL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open jsonl file: %w", err)
	}
	return &JSONL{w: f, closer: f}, nil
}

// NewJSONLWriter wraps an existing writer, typically stdout.
func NewJSONLWriter(w io.Writer) *JSONL {
	return &JSONL{w: w}
}

func (s *JSONL) Push(_ context.Context, records []product.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := jsonAPI.NewEncoder(s.w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record %s: %w", rec.ProductID, err)
		}
	}
	return nil
}

func (s *JSONL) Close(_ context.Context) error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
