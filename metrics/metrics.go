package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics collection
var (
	httpRequests = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_seconds",
			Help:    "Duration, method, path, code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "code"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests.",
		},
		[]string{"method", "path", "code"},
	)

	httpRequestsInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "In-flight HTTP requests.",
		},
		[]string{"path"},
	)

	// Labels: "site", "outcome"
	ScraperJob = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_job_seconds",
			Help:    "Scraper Job duration by site and outcome.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"site", "outcome"},
	)

	// Labels: "strategy", "outcome"
	ProxySelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_selections_total",
			Help: "Total proxy selections by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)
)

func Init() {
	prometheus.MustRegister(
		httpRequests,
		httpRequestsTotal,
		httpRequestsInFlight,
		ScraperJob,
		ProxySelections,
	)
}

func ObserveScrape(site, outcome string, d time.Duration) {
	ScraperJob.WithLabelValues(site, outcome).Observe(d.Seconds())
}

func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" { // skip telemetry for the telemetry endpoint
			next.ServeHTTP(w, r)
			return
		}
		httpRequestsInFlight.WithLabelValues(r.URL.Path).Inc()
		defer httpRequestsInFlight.WithLabelValues(r.URL.Path).Dec()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: 200}
		next.ServeHTTP(rec, r)
		d := time.Since(start).Seconds()
		httpRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.code)).Observe(d)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.code)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}
