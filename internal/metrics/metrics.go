package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filmsearch",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "filmsearch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	CatalogRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filmsearch",
		Name:      "catalog_requests_total",
		Help:      "Total catalog API requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	CatalogRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "filmsearch",
		Name:      "catalog_request_duration_seconds",
		Help:      "Catalog API request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	CatalogAvailable = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "filmsearch",
		Name:      "catalog_available",
		Help:      "Whether the catalog is available (1) or cooling down after failures (0).",
	})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filmsearch",
		Name:      "cache_hits_total",
		Help:      "Total number of result cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filmsearch",
		Name:      "cache_misses_total",
		Help:      "Total number of result cache misses.",
	})

	CacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filmsearch",
		Name:      "cache_evictions_total",
		Help:      "Total number of least recently used result cache evictions.",
	})

	SupersededResponsesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filmsearch",
		Name:      "superseded_responses_total",
		Help:      "Responses discarded because a newer search was started.",
	})

	DiscoveryRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "filmsearch",
		Name:      "discovery_run_duration_seconds",
		Help:      "Duration of aggregation runs by variant.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
	}, []string{"variant"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CatalogRequestsTotal,
		CatalogRequestDuration,
		CatalogAvailable,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEvictionsTotal,
		SupersededResponsesTotal,
		DiscoveryRunDuration,
	)
}
