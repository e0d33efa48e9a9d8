package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/extract"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

// HTTPFetcher implements Fetcher using the Colly collector. Each request
// runs on a clone of the base collector so per-request identity headers
// never leak between pages.
type HTTPFetcher struct {
	base         *colly.Collector
	rotator      *identityRotator
	hostQPS      float64
	hostLimiters sync.Map
	logger       *zap.Logger
}

// NewHTTPFetcher constructs a configured Colly-based fetcher.
func NewHTTPFetcher(cfg Config, logger *zap.Logger) (*HTTPFetcher, error) {
	rotator := newIdentityRotator()

	base := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(rotator.Current().UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       cfg.Concurrency * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)
	if cfg.ProxyURL != "" {
		if err := base.SetProxy(cfg.ProxyURL); err != nil {
			return nil, err
		}
	}

	return &HTTPFetcher{
		base:    base,
		rotator: rotator,
		hostQPS: cfg.HostQPS,
		logger:  logger,
	}, nil
}

// Fetch retrieves a page. A request flagged FreshIdentity rotates the
// browser disguise before being sent.
func (f *HTTPFetcher) Fetch(ctx context.Context, req product.PageRequest) (extract.Content, error) {
	if err := f.waitHostBudget(ctx, req.URL); err != nil {
		return extract.Content{}, err
	}

	identity := f.rotator.Current()
	if req.FreshIdentity {
		identity = f.rotator.Rotate()
		f.logger.Debug("rotated identity", zap.String("user_agent", identity.UserAgent))
	}

	collector := f.base.Clone()
	collector.UserAgent = identity.UserAgent

	resultCh := make(chan httpResult, 1)
	var once sync.Once
	send := func(res httpResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnRequest(func(r *colly.Request) {
		for k, v := range identity.Headers {
			r.Headers.Set(k, v)
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		send(httpResult{body: append([]byte{}, r.Body...)})
	})

	collector.OnError(func(r *colly.Response, err error) {
		// Challenge pages arrive with non-2xx status codes. Keep the body
		// so the blocking detector can classify it.
		if r != nil && len(r.Body) > 0 {
			send(httpResult{body: append([]byte{}, r.Body...)})
			return
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(httpResult{err: err})
	})

	if err := collector.Visit(req.URL); err != nil {
		return extract.Content{}, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return extract.Content{}, err
		}
		if res.err != nil {
			return extract.Content{}, res.err
		}
		return f.content(req, res.body), nil
	default:
		return extract.Content{}, errors.New("fetch produced no result")
	}
}

func (f *HTTPFetcher) content(req product.PageRequest, body []byte) extract.Content {
	content := extract.Content{
		URL:        req.URL,
		PageNumber: req.PageNumber,
		Body:       body,
	}
	// A parse failure leaves DOM nil; the pipeline falls back to the raw
	// bytes.
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		content.DOM = doc
	}
	return content
}

func (f *HTTPFetcher) waitHostBudget(ctx context.Context, rawURL string) error {
	if f.hostQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	host := strings.ToLower(parsed.Host)
	val, _ := f.hostLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(f.hostQPS), 1))
	limiter := val.(*rate.Limiter)
	return limiter.Wait(ctx)
}

type httpResult struct {
	body []byte
	err  error
}
