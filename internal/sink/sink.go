// Package sink delivers saved product records to their destinations:
// stdout, JSONL files, Postgres, or Pub/Sub.
package sink

import (
	"context"
	"errors"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

// Sink receives batches of saved records during a run.
type Sink interface {
	Push(ctx context.Context, records []product.Record) error
	Close(ctx context.Context) error
}

// Multi fans every batch out to all configured sinks. A failing sink does
// not stop delivery to the others; the errors are joined.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Push(ctx context.Context, records []product.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Push(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
