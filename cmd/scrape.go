package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/api"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/config"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/crawl"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/extract"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/fetch"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/logging"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/metrics"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/sink"
	"github.com/JakeFAU/aliexpress-search-crawler/internal/storage"
)

type scrapeFlags struct {
	keyword  string
	startURL string
	results  int
	sortBy   string
	minPrice string
	maxPrice string
	category string
	engine   string
	output   string
}

// newScrapeCmd creates and configures the 'scrape' subcommand.
func newScrapeCmd() *cobra.Command {
	flags := &scrapeFlags{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs one scrape for a keyword",
		Long: `Runs a single scrape: builds the search URL for the keyword, walks
result pages until the requested number of products is collected, and
streams normalized records to the configured sinks.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.keyword, "keyword", "k", "", "search keyword")
	cmd.Flags().StringVar(&flags.startURL, "start-url", "", "explicit first-page URL instead of a keyword-built one")
	cmd.Flags().IntVarP(&flags.results, "results", "n", 0, "number of products to collect")
	cmd.Flags().StringVar(&flags.sortBy, "sort", "", "sort order: default, price_asc, price_desc, orders")
	cmd.Flags().StringVar(&flags.minPrice, "min-price", "", "minimum price filter")
	cmd.Flags().StringVar(&flags.maxPrice, "max-price", "", "maximum price filter")
	cmd.Flags().StringVar(&flags.category, "category", "", "category ID filter")
	cmd.Flags().StringVar(&flags.engine, "engine", "", "fetch engine: http or browser")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "JSONL output path, or - for stdout")

	return cmd
}

func runScrape(cmd *cobra.Command, flags *scrapeFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	params := cfg.Search.Params()
	logger = logging.WithRun(logger, runID, params.Keyword)

	fetcher, closeFetcher, err := buildFetcher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFetcher()

	sinks, err := buildSinks(ctx, cfg, runID)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sinks.Close(context.Background()); cerr != nil {
			logger.Warn("closing sinks failed", zap.Error(cerr))
		}
	}()

	snapshots, err := buildSnapshots(ctx, cfg)
	if err != nil {
		return err
	}

	frontier, err := buildFrontier(ctx, cfg)
	if err != nil {
		return err
	}

	pipeline := extract.NewPipeline(extract.PipelineConfig{
		MaxDepth:      cfg.Extract.MaxDepth,
		DataMarkers:   cfg.Extract.DataMarkers,
		CardSelectors: cfg.Extract.CardSelectors,
	}, logger)
	detector := extract.NewBlockingDetector(cfg.Extract.MinHTMLBytes, cfg.Extract.BlockMarkers)

	controller := crawl.New(crawl.Config{
		Params:       params,
		Concurrency:  cfg.Crawler.Concurrency,
		RetryLimit:   cfg.Crawler.RetryLimit,
		FetchTimeout: cfg.Crawler.FetchTimeout(),
		Engine:       cfg.Fetch.Engine,
		RunID:        runID,
	}, fetcher, pipeline, detector, sinks, frontier, snapshots, logger)

	if cfg.Metrics.Enabled {
		stats := func() api.RunStats {
			saved, fetched, blocked, failed := controller.Stats()
			return api.RunStats{
				RunID:        runID,
				Keyword:      params.Keyword,
				Requested:    params.ResultsWanted,
				Saved:        saved,
				PagesFetched: fetched,
				PagesBlocked: blocked,
				PagesFailed:  failed,
			}
		}
		srv := api.NewServer(stats, logger)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			if serveErr := srv.Serve(ctx, addr); serveErr != nil {
				logger.Warn("diagnostics server stopped", zap.Error(serveErr))
			}
		}()
	}

	summary, err := controller.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run scrape: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "saved %d of %d requested products (run %s)\n",
		summary.Saved, summary.Requested, summary.RunID)
	return nil
}

// loadConfig reads the config file and applies any explicitly set flags on
// top of it.
func loadConfig(cmd *cobra.Command, flags *scrapeFlags) (config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("aliscraper.yaml"); err == nil {
			path = "aliscraper.yaml"
		}
	}

	cfg, err := config.LoadUnvalidated(path)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.Flags().Changed("keyword") {
		cfg.Search.Keyword = flags.keyword
	}
	if cmd.Flags().Changed("start-url") {
		cfg.Search.StartURL = flags.startURL
	}
	if cmd.Flags().Changed("results") {
		cfg.Search.ResultsWanted = flags.results
	}
	if cmd.Flags().Changed("sort") {
		cfg.Search.SortBy = flags.sortBy
	}
	if cmd.Flags().Changed("min-price") {
		cfg.Search.MinPrice = flags.minPrice
	}
	if cmd.Flags().Changed("max-price") {
		cfg.Search.MaxPrice = flags.maxPrice
	}
	if cmd.Flags().Changed("category") {
		cfg.Search.Category = flags.category
	}
	if cmd.Flags().Changed("engine") {
		cfg.Fetch.Engine = flags.engine
	}
	if cmd.Flags().Changed("output") {
		cfg.Sink.OutputPath = flags.output
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func buildFetcher(cfg config.Config, logger *zap.Logger) (crawl.Fetcher, func(), error) {
	fetchCfg := fetch.Config{
		Timeout:     cfg.Crawler.FetchTimeout(),
		Concurrency: cfg.Crawler.Concurrency,
		HostQPS:     cfg.Fetch.HostQPS,
		SettleDelay: cfg.Fetch.SettleDelay(),
		ProxyURL:    cfg.Fetch.ProxyURL,
	}

	switch cfg.Fetch.Engine {
	case "browser":
		f, err := fetch.NewBrowserFetcher(fetchCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init browser fetcher: %w", err)
		}
		return f, func() { _ = f.Close() }, nil
	default:
		f, err := fetch.NewHTTPFetcher(fetchCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init http fetcher: %w", err)
		}
		return f, func() {}, nil
	}
}

func buildSinks(ctx context.Context, cfg config.Config, runID string) (*sink.Multi, error) {
	var sinks []sink.Sink

	switch cfg.Sink.OutputPath {
	case "":
	case "-":
		sinks = append(sinks, sink.NewJSONLWriter(os.Stdout))
	default:
		s, err := sink.NewJSONLFile(cfg.Sink.OutputPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.Sink.Postgres.DSN != "" {
		s, err := sink.NewPostgres(ctx, sink.PostgresConfig{
			DSN:   cfg.Sink.Postgres.DSN,
			Table: cfg.Sink.Postgres.Table,
		}, runID)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.Sink.PubSub.ProjectID != "" && cfg.Sink.PubSub.TopicID != "" {
		client, err := pubsub.NewClient(ctx, cfg.Sink.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		sinks = append(sinks, sink.NewPubSub(client.Topic(cfg.Sink.PubSub.TopicID), runID))
	}

	if len(sinks) == 0 {
		sinks = append(sinks, sink.NewJSONLWriter(os.Stdout))
	}
	return sink.NewMulti(sinks...), nil
}

func buildSnapshots(ctx context.Context, cfg config.Config) (crawl.Snapshotter, error) {
	if !cfg.Snapshots.Enabled {
		return nil, nil
	}
	if cfg.Snapshots.GCSBucket != "" {
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		return storage.NewGCS(client, cfg.Snapshots.GCSBucket, cfg.Snapshots.Prefix)
	}
	return storage.NewLocal(cfg.Snapshots.Dir)
}

func buildFrontier(ctx context.Context, cfg config.Config) (crawl.Frontier, error) {
	if cfg.Frontier.Backend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Frontier.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis frontier: %w", err)
		}
		frontier := crawl.NewRedisFrontier(client, cfg.Frontier.RedisKey)
		if err := frontier.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset redis frontier: %w", err)
		}
		return frontier, nil
	}
	return crawl.NewMemoryFrontier(), nil
}
