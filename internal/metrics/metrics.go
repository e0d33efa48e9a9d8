// Package metrics exposes Prometheus collectors for the scraper.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperPagesTotal           *prometheus.CounterVec
	scraperProductsSavedTotal   prometheus.Counter
	scraperProductsSkippedTotal *prometheus.CounterVec
	scraperExtractStrategyTotal *prometheus.CounterVec
	scraperFetchDurationSeconds *prometheus.HistogramVec
	scraperRetriesTotal         *prometheus.CounterVec
	scraperActiveWorkers        prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_total",
				Help: "Total number of search pages processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scraperProductsSavedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_products_saved_total",
				Help: "Total number of product records saved.",
			},
		)

		scraperProductsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_products_skipped_total",
				Help: "Total number of extracted products not saved, labeled by reason.",
			},
			[]string{"reason"},
		)

		scraperExtractStrategyTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_extract_strategy_total",
				Help: "Pages counted by the extraction strategy that produced records.",
			},
			[]string{"strategy"},
		)

		scraperFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by engine.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"engine"},
		)

		scraperRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_retries_total",
				Help: "Total number of page retries, labeled by cause.",
			},
			[]string{"cause"},
		)

		scraperActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_active_workers",
				Help: "Number of workers currently processing a page.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts a processed page by outcome (ok, blocked, failed, empty).
func ObservePage(outcome string) {
	if scraperPagesTotal == nil {
		return
	}
	scraperPagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveProductsSaved adds to the saved-records counter.
func ObserveProductsSaved(n int) {
	if scraperProductsSavedTotal == nil || n <= 0 {
		return
	}
	scraperProductsSavedTotal.Add(float64(n))
}

// ObserveProductSkipped counts a product that was extracted but not saved.
func ObserveProductSkipped(reason string) {
	if scraperProductsSkippedTotal == nil {
		return
	}
	scraperProductsSkippedTotal.WithLabelValues(reason).Inc()
}

// ObserveExtractStrategy counts which extraction strategy served a page.
func ObserveExtractStrategy(strategy string) {
	if scraperExtractStrategyTotal == nil {
		return
	}
	scraperExtractStrategyTotal.WithLabelValues(strategy).Inc()
}

// ObserveFetch records the duration of a page fetch.
func ObserveFetch(engine string, duration time.Duration) {
	if scraperFetchDurationSeconds == nil {
		return
	}
	scraperFetchDurationSeconds.WithLabelValues(engine).Observe(duration.Seconds())
}

// ObserveRetry counts a re-enqueued page by cause (blocked, fetch_error).
func ObserveRetry(cause string) {
	if scraperRetriesTotal == nil {
		return
	}
	scraperRetriesTotal.WithLabelValues(cause).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if scraperActiveWorkers == nil {
		return
	}
	scraperActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if scraperActiveWorkers == nil {
		return
	}
	scraperActiveWorkers.Dec()
}
