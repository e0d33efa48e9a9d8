package crawl

import (
	"context"
	"sync"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

// Frontier is the queue of page requests awaiting a worker. Pop is
// non-blocking: the second return value reports whether a request was
// available, letting workers poll until the run drains.
type Frontier interface {
	Push(ctx context.Context, req product.PageRequest) error
	Pop(ctx context.Context) (product.PageRequest, bool, error)
}

// MemoryFrontier is the default in-process FIFO frontier.
type MemoryFrontier struct {
	mu    sync.Mutex
	queue []product.PageRequest
}

func NewMemoryFrontier() *MemoryFrontier {
	return &MemoryFrontier{}
}

func (f *MemoryFrontier) Push(_ context.Context, req product.PageRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, req)
	return nil
}

func (f *MemoryFrontier) Pop(_ context.Context) (product.PageRequest, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return product.PageRequest{}, false, nil
	}
	req := f.queue[0]
	f.queue = f.queue[1:]
	return req, true, nil
}

func (f *MemoryFrontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}
