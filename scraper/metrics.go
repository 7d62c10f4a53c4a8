package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the orchestrator.
type Metrics struct {
	Registry       *prometheus.Registry
	PairsTotal     *prometheus.CounterVec
	ProductsTotal  prometheus.Counter
	UpsertsTotal   *prometheus.CounterVec
	RetriesTotal   prometheus.Counter
	ErrorsTotal    *prometheus.CounterVec
	ScrapeDuration prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pairs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pairs_total",
			Help: "Website/category pairs processed, by outcome.",
		},
		[]string{"status"},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_products_scraped_total",
			Help: "Validated candidate records extracted.",
		},
	)
	upserts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_products_upserted_total",
			Help: "Products written to the store, by operation.",
		},
		[]string{"op"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Retry attempts scheduled during extraction.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Scrape failures by error type.",
		},
		[]string{"error_type"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_pair_duration_seconds",
			Help:    "Wall time spent scraping one website/category pair.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(pairs, products, upserts, retries, errorsTotal, duration)

	return &Metrics{
		Registry:       registry,
		PairsTotal:     pairs,
		ProductsTotal:  products,
		UpsertsTotal:   upserts,
		RetriesTotal:   retries,
		ErrorsTotal:    errorsTotal,
		ScrapeDuration: duration,
	}
}

// IncPair increments the pair counter for an outcome.
func (m *Metrics) IncPair(status string) {
	if m == nil {
		return
	}
	m.PairsTotal.WithLabelValues(status).Inc()
}

// AddProducts counts validated candidates.
func (m *Metrics) AddProducts(n int) {
	if m == nil {
		return
	}
	m.ProductsTotal.Add(float64(n))
}

// IncUpsert counts a store write by operation (created or updated).
func (m *Metrics) IncUpsert(op string) {
	if m == nil {
		return
	}
	m.UpsertsTotal.WithLabelValues(op).Inc()
}

// IncRetries counts a scheduled retry attempt.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError counts a failure by classified type.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObserveDuration records how long one pair took.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.ScrapeDuration.Observe(d.Seconds())
}
