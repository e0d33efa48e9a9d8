package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/metrics"
)

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunStats(t *testing.T) {
	t.Parallel()

	stats := func() RunStats {
		return RunStats{
			RunID:        "run-1",
			Keyword:      "usb hub",
			Requested:    20,
			Saved:        12,
			PagesFetched: 3,
		}
	}
	srv := NewServer(stats, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runstats", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got RunStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "run-1", got.RunID)
	require.Equal(t, 12, got.Saved)
}

func TestRunStatsWithoutRun(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runstats", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	metrics.Init()
	srv := NewServer(nil, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}
