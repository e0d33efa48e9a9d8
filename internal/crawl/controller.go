package crawl

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/extract"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/metrics"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

// pollInterval is how long an idle worker waits before re-checking the
// frontier for work produced by its peers.
const pollInterval = 25 * time.Millisecond

// maxPopFailures is how many consecutive frontier errors a worker tolerates
// before it gives up on the backend and fails the run.
const maxPopFailures = 5

// popBackoff doubles the idle poll interval per consecutive frontier
// failure, capped at one second.
func popBackoff(failures int) time.Duration {
	d := pollInterval << failures
	if d > time.Second {
		return time.Second
	}
	return d
}

// Fetcher retrieves one search page.
type Fetcher interface {
	Fetch(ctx context.Context, req product.PageRequest) (extract.Content, error)
}

// Extractor turns page content into normalized records. It reports which
// strategy produced them.
type Extractor interface {
	Extract(content extract.Content) ([]product.Record, string)
}

// Detector classifies page content as blocked or usable.
type Detector interface {
	Blocked(body []byte) bool
}

// Sink receives saved records as soon as they are accepted.
type Sink interface {
	Push(ctx context.Context, records []product.Record) error
}

// Snapshotter persists raw blocked-page bodies for offline inspection.
type Snapshotter interface {
	Save(ctx context.Context, name string, data []byte) error
}

// Config carries the per-run knobs for the controller.
type Config struct {
	Params       product.SearchParams
	Concurrency  int
	RetryLimit   int
	FetchTimeout time.Duration
	Engine       string
	// RunID is assigned when empty so sinks can share the identifier.
	RunID string
}

// Summary reports how a run ended.
type Summary struct {
	RunID        string
	Requested    int
	Saved        int
	PagesFetched int
	PagesBlocked int
	PagesFailed  int
	Duration     time.Duration
}

// Controller drives one scrape run: it seeds the frontier, fans pages out
// to workers, deduplicates and caps results, paginates while the target is
// unmet, and terminates once the frontier drains or the target is reached.
type Controller struct {
	cfg       Config
	fetcher   Fetcher
	extractor Extractor
	detector  Detector
	sink      Sink
	snapshots Snapshotter
	frontier  Frontier
	retry     *RetryPolicy
	state     *State
	logger    *zap.Logger
	runID     string

	// pending counts requests that are queued or in flight. Workers exit
	// when the frontier is empty and pending is zero.
	pending atomic.Int64

	mu           sync.Mutex
	pagesFetched int
	pagesBlocked int
	pagesFailed  int
}

func New(cfg Config, fetcher Fetcher, extractor Extractor, detector Detector, sink Sink, frontier Frontier, snapshots Snapshotter, logger *zap.Logger) *Controller {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Controller{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		detector:  detector,
		sink:      sink,
		snapshots: snapshots,
		frontier:  frontier,
		retry:     NewRetryPolicy(cfg.RetryLimit),
		state:     NewState(cfg.Params.ResultsWanted),
		logger:    logger,
		runID:     runID,
	}
}

// RunID returns the identifier assigned to this run.
func (c *Controller) RunID() string {
	return c.runID
}

// Stats returns a point-in-time view of the run counters for diagnostics.
func (c *Controller) Stats() (saved, fetched, blocked, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Saved(), c.pagesFetched, c.pagesBlocked, c.pagesFailed
}

// Run executes the crawl to completion and returns its summary. It stops
// when the saved count reaches the target, the frontier drains, or the
// context is canceled.
func (c *Controller) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	c.logger.Info("run starting",
		zap.String("run_id", c.runID),
		zap.String("keyword", c.cfg.Params.Keyword),
		zap.Int("results_wanted", c.cfg.Params.ResultsWanted),
		zap.Int("concurrency", c.cfg.Concurrency),
	)

	seed := product.PageRequest{URL: FirstPageURL(c.cfg.Params), PageNumber: 1}
	if err := c.enqueue(ctx, seed); err != nil {
		return Summary{RunID: c.runID}, fmt.Errorf("seed frontier: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.cfg.Concurrency; i++ {
		g.Go(func() error {
			return c.workerLoop(ctx)
		})
	}
	err := g.Wait()

	summary := c.summary(start)
	c.logger.Info("run finished",
		zap.Int("saved", summary.Saved),
		zap.Int("requested", summary.Requested),
		zap.Int("pages_fetched", summary.PagesFetched),
		zap.Int("pages_blocked", summary.PagesBlocked),
		zap.Int("pages_failed", summary.PagesFailed),
		zap.Duration("duration", summary.Duration),
	)
	if summary.Saved < summary.Requested {
		c.logger.Warn("run ended short of target",
			zap.Int("saved", summary.Saved),
			zap.Int("requested", summary.Requested),
		)
	}
	return summary, err
}

func (c *Controller) workerLoop(ctx context.Context) error {
	popFailures := 0
	for {
		req, ok, err := c.frontier.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			popFailures++
			if popFailures >= maxPopFailures {
				c.logger.Error("frontier unavailable, failing run", zap.Error(err))
				return fmt.Errorf("frontier pop: %w", err)
			}
			c.logger.Error("frontier pop failed", zap.Error(err), zap.Int("consecutive", popFailures))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(popBackoff(popFailures)):
			}
			continue
		}
		popFailures = 0
		if !ok {
			if c.pending.Load() == 0 {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
			continue
		}

		metrics.IncActiveWorkers()
		c.processPage(ctx, req)
		metrics.DecActiveWorkers()
		c.pending.Add(-1)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Controller) processPage(ctx context.Context, req product.PageRequest) {
	log := c.logger.With(
		zap.String("url", req.URL),
		zap.Int("page", req.PageNumber),
		zap.Int("retry", req.RetryCount),
	)

	if c.state.TargetReached() {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	start := time.Now()
	content, err := c.fetcher.Fetch(fetchCtx, req)
	cancel()
	metrics.ObserveFetch(c.cfg.Engine, time.Since(start))

	if err != nil {
		// ctx.Err() distinguishes a canceled run from a page that spent
		// its own fetch deadline; only the latter is worth retrying.
		if ctx.Err() == nil && c.retry.ShouldRetry(err, req.RetryCount) {
			log.Warn("fetch failed, retrying", zap.Error(err))
			metrics.ObserveRetry("fetch_error")
			c.requeue(ctx, req, false)
			return
		}
		log.Error("page dropped after fetch failures", zap.Error(err))
		metrics.ObservePage("failed")
		c.count(func() { c.pagesFailed++ })
		return
	}

	if c.detector.Blocked(content.Body) {
		c.count(func() { c.pagesBlocked++ })
		metrics.ObservePage("blocked")
		c.snapshot(ctx, req, content.Body)
		if c.retry.Allows(req.RetryCount) {
			log.Warn("blocking detected, retrying with fresh identity")
			metrics.ObserveRetry("blocked")
			c.requeue(ctx, req, true)
			return
		}
		log.Error("page dropped, blocked on every attempt")
		c.count(func() { c.pagesFailed++ })
		return
	}

	c.count(func() { c.pagesFetched++ })

	records, strategy := c.extractor.Extract(content)
	if len(records) == 0 {
		log.Info("no products on page, stopping pagination here")
		metrics.ObservePage("empty")
		return
	}
	metrics.ObservePage("ok")
	metrics.ObserveExtractStrategy(strategy)

	batch := make([]product.Record, 0, len(records))
	for _, rec := range records {
		if c.state.TrySave(rec.ProductID) {
			batch = append(batch, rec)
		} else {
			metrics.ObserveProductSkipped("duplicate_or_capped")
		}
	}
	if len(batch) > 0 {
		if err := c.sink.Push(ctx, batch); err != nil {
			log.Error("sink push failed", zap.Error(err), zap.Int("records", len(batch)))
		}
		metrics.ObserveProductsSaved(len(batch))
	}
	log.Info("page processed",
		zap.String("strategy", strategy),
		zap.Int("extracted", len(records)),
		zap.Int("saved", len(batch)),
		zap.Int("total_saved", c.state.Saved()),
	)

	if !c.state.TargetReached() {
		next := product.PageRequest{
			URL:        BuildSearchURL(c.cfg.Params, req.PageNumber+1),
			PageNumber: req.PageNumber + 1,
		}
		if err := c.enqueue(ctx, next); err != nil {
			log.Error("failed to enqueue next page", zap.Error(err))
		}
	}
}

func (c *Controller) enqueue(ctx context.Context, req product.PageRequest) error {
	c.pending.Add(1)
	if err := c.frontier.Push(ctx, req); err != nil {
		c.pending.Add(-1)
		return err
	}
	return nil
}

func (c *Controller) requeue(ctx context.Context, req product.PageRequest, freshIdentity bool) {
	delay := c.retry.Backoff(req.RetryCount)
	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	next := req
	next.RetryCount++
	next.FreshIdentity = next.FreshIdentity || freshIdentity
	if err := c.enqueue(ctx, next); err != nil {
		c.logger.Error("failed to requeue page", zap.String("url", req.URL), zap.Error(err))
		c.count(func() { c.pagesFailed++ })
	}
}

// snapshot stores the raw blocked page body. Failures are logged and
// otherwise ignored; diagnostics never fail a run.
func (c *Controller) snapshot(ctx context.Context, req product.PageRequest, body []byte) {
	if c.snapshots == nil || len(body) == 0 {
		return
	}
	name := fmt.Sprintf("%s/page-%d-retry-%d.html", c.runID, req.PageNumber, req.RetryCount)
	if err := c.snapshots.Save(ctx, name, body); err != nil {
		c.logger.Warn("blocked page snapshot failed", zap.String("object", name), zap.Error(err))
	}
}

func (c *Controller) count(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

func (c *Controller) summary(start time.Time) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Summary{
		RunID:        c.runID,
		Requested:    c.cfg.Params.ResultsWanted,
		Saved:        c.state.Saved(),
		PagesFetched: c.pagesFetched,
		PagesBlocked: c.pagesBlocked,
		PagesFailed:  c.pagesFailed,
		Duration:     time.Since(start),
	}
}
