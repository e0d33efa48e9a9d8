package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  keyword: towel\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "towel", cfg.Search.Keyword)
	require.Equal(t, 20, cfg.Search.ResultsWanted)
	require.Equal(t, 5, cfg.Crawler.Concurrency)
	require.Equal(t, 3, cfg.Crawler.RetryLimit)
	require.Equal(t, "http", cfg.Fetch.Engine)
	require.Equal(t, 12, cfg.Extract.MaxDepth)
	require.Equal(t, "memory", cfg.Frontier.Backend)
}

func TestLoadRejectsMissingKeywordAndStartURL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  results_wanted: 5\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "keyword or start_url")
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg := Config{}
		cfg.Search.Keyword = "towel"
		cfg.Search.ResultsWanted = 20
		cfg.Search.SortBy = "default"
		cfg.Crawler.Concurrency = 5
		cfg.Crawler.TimeoutSeconds = 60
		cfg.Fetch.Engine = "http"
		cfg.Extract.MaxDepth = 12
		cfg.Frontier.Backend = "memory"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Crawler.Concurrency = 0 }},
		{"negative retries", func(c *Config) { c.Crawler.RetryLimit = -1 }},
		{"unknown engine", func(c *Config) { c.Fetch.Engine = "carrier-pigeon" }},
		{"unknown sort", func(c *Config) { c.Search.SortBy = "rating" }},
		{"zero results", func(c *Config) { c.Search.ResultsWanted = 0 }},
		{"redis without addr", func(c *Config) { c.Frontier.Backend = "redis" }},
		{"zero depth", func(c *Config) { c.Extract.MaxDepth = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestSearchParamsConversion(t *testing.T) {
	t.Parallel()

	s := SearchConfig{
		Keyword:       "  bath towel ",
		SortBy:        "price_asc",
		ResultsWanted: 10,
		MinPrice:      "5",
	}
	params := s.Params()
	require.Equal(t, "bath towel", params.Keyword)
	require.Equal(t, "price_asc", string(params.SortBy))
	require.Equal(t, "5", params.MinPrice)
	require.NoError(t, params.Validate())
}
