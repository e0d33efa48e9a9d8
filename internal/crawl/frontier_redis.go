package crawl

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

// RedisFrontier backs the frontier with a Redis list so a run can be shared
// across processes or survive a restart. Requests are JSON-encoded and
// consumed FIFO (RPUSH / LPOP).
type RedisFrontier struct {
	client *redis.Client
	key    string
}

func NewRedisFrontier(client *redis.Client, key string) *RedisFrontier {
	if key == "" {
		key = "aliscraper:frontier"
	}
	return &RedisFrontier{client: client, key: key}
}

func (f *RedisFrontier) Push(ctx context.Context, req product.PageRequest) error {
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode page request: %w", err)
	}
	if err := f.client.RPush(ctx, f.key, payload).Err(); err != nil {
		return fmt.Errorf("push page request: %w", err)
	}
	return nil
}

func (f *RedisFrontier) Pop(ctx context.Context) (product.PageRequest, bool, error) {
	payload, err := f.client.LPop(ctx, f.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return product.PageRequest{}, false, nil
	}
	if err != nil {
		return product.PageRequest{}, false, fmt.Errorf("pop page request: %w", err)
	}

	var req product.PageRequest
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(payload, &req); err != nil {
		return product.PageRequest{}, false, fmt.Errorf("decode page request: %w", err)
	}
	return req, true, nil
}

// Reset drops any requests left over from a previous run.
func (f *RedisFrontier) Reset(ctx context.Context) error {
	return f.client.Del(ctx, f.key).Err()
}
