package fetch

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/extract"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

// BrowserFetcher renders search pages in headless Chrome. The result pages
// hydrate their product grid with JavaScript, so after navigation the
// fetcher waits a settle delay before snapshotting the DOM.
type BrowserFetcher struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	rotator         *identityRotator
	settleDelay     time.Duration
	timeout         time.Duration
	sem             chan struct{}
	logger          *zap.Logger
}

// NewBrowserFetcher starts a headless browser and warms it up.
func NewBrowserFetcher(cfg Config, logger *zap.Logger) (*BrowserFetcher, error) {
	rotator := newIdentityRotator()

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(rotator.Current().UserAgent),
	)
	if cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyURL))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	settle := cfg.SettleDelay
	if settle <= 0 {
		settle = 1500 * time.Millisecond
	}

	return &BrowserFetcher{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		rotator:         rotator,
		settleDelay:     settle,
		timeout:         cfg.Timeout,
		sem:             make(chan struct{}, concurrency),
		logger:          logger,
	}, nil
}

// Close tears down the browser and its allocator.
func (f *BrowserFetcher) Close() error {
	if f == nil {
		return nil
	}
	f.browserCancel()
	f.allocatorCancel()
	return nil
}

// Fetch renders the page in a fresh tab and returns the settled DOM.
func (f *BrowserFetcher) Fetch(ctx context.Context, req product.PageRequest) (extract.Content, error) {
	select {
	case f.sem <- struct{}{}:
		defer func() { <-f.sem }()
	case <-ctx.Done():
		return extract.Content{}, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}

	identity := f.rotator.Current()
	if req.FreshIdentity {
		identity = f.rotator.Rotate()
		f.logger.Debug("rotated identity", zap.String("user_agent", identity.UserAgent))
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	timeout := f.timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	taskCtx, cancelTask := context.WithTimeout(tabCtx, timeout)
	defer cancelTask()

	stop := forwardCancel(ctx, cancelTask)
	defer stop()

	headers := make(network.Headers, len(identity.Headers))
	for k, v := range identity.Headers {
		headers[k] = v
	}

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		emulation.SetUserAgentOverride(identity.UserAgent),
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.settleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return extract.Content{}, fmt.Errorf("chromedp run: %w", err)
	}

	content := extract.Content{
		URL:        req.URL,
		PageNumber: req.PageNumber,
		Body:       []byte(html),
	}
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content.Body)); err == nil {
		content.DOM = doc
	} else if !strings.Contains(html, "<html") {
		f.logger.Warn("rendered page produced no parseable document", zap.String("url", req.URL))
	}
	return content, nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
