package sink

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool used for product rows.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Postgres writes product rows into Postgres. Conflicting (run_id,
// product_id) pairs are ignored so retried batches stay idempotent.
type Postgres struct {
	pool  execCloser
	table string
	runID string
}

// NewPostgres creates a Postgres-backed sink using the provided config.
func NewPostgres(ctx context.Context, cfg PostgresConfig, runID string) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool, table: table, runID: runID}, nil
}

// NewPostgresWithPool constructs a sink from an existing pool (primarily for testing).
func NewPostgresWithPool(pool execCloser, table, runID string) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Postgres{pool: pool, table: table, runID: runID}, nil
}

func (s *Postgres) Push(ctx context.Context, records []product.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres sink is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	product_id,
	title,
	price,
	original_price,
	currency,
	rating,
	reviews_count,
	orders_count,
	store_name,
	store_url,
	image_url,
	product_url,
	scraped_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
) ON CONFLICT (run_id, product_id) DO NOTHING`, s.table)

	now := time.Now().UTC()
	for _, rec := range records {
		args := []any{
			s.runID,
			rec.ProductID,
			rec.Title,
			rec.Price,
			rec.OriginalPrice,
			rec.Currency,
			rec.Rating,
			rec.ReviewsCount,
			rec.Orders,
			rec.StoreName,
			rec.StoreURL,
			rec.ImageURL,
			rec.ProductURL,
			now,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert product %s: %w", rec.ProductID, err)
		}
	}
	return nil
}

func (s *Postgres) Close(_ context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
