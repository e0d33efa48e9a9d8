// Package fetch retrieves search pages, either with a plain HTTP client or
// a headless browser, and hands the raw bytes plus a parsed DOM to the
// extraction pipeline.
package fetch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/extract"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

// Fetcher retrieves one search page.
type Fetcher interface {
	Fetch(ctx context.Context, req product.PageRequest) (extract.Content, error)
}

// Config carries the shared fetch settings.
type Config struct {
	Timeout     time.Duration
	Concurrency int
	HostQPS     float64
	SettleDelay time.Duration
	ProxyURL    string
}

// Identity is one browser disguise: a user agent plus the headers a real
// browser with that agent would send.
type Identity struct {
	UserAgent string
	Headers   map[string]string
}

// identityPool mirrors a handful of current desktop browsers. Rotation
// picks a different entry when a page came back blocked.
var identityPool = []Identity{
	{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Sec-Ch-Ua":       `"Not/A)Brand";v="8", "Chromium";v="126", "Google Chrome";v="126"`,
			"Sec-Fetch-Dest":  "document",
			"Sec-Fetch-Mode":  "navigate",
			"Sec-Fetch-Site":  "none",
		},
	},
	{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.8",
			"Sec-Ch-Ua":       `"Chromium";v="125", "Google Chrome";v="125", "Not.A/Brand";v="24"`,
			"Sec-Fetch-Dest":  "document",
			"Sec-Fetch-Mode":  "navigate",
			"Sec-Fetch-Site":  "none",
		},
	},
	{
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.5",
			"Upgrade-Insecure-Requests": "1",
		},
	},
	{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
	},
}

// identityRotator hands out identities, keeping the current one until a
// rotation is requested.
type identityRotator struct {
	mu      sync.Mutex
	pool    []Identity
	current int
}

func newIdentityRotator() *identityRotator {
	return &identityRotator{
		pool:    identityPool,
		current: rand.Intn(len(identityPool)),
	}
}

func (r *identityRotator) Current() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pool[r.current]
}

// Rotate switches to a different identity and returns it.
func (r *identityRotator) Rotate() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pool) > 1 {
		r.current = (r.current + 1 + rand.Intn(len(r.pool)-1)) % len(r.pool)
	}
	return r.pool[r.current]
}
