package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles prometheus collectors used by the gallery service.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	FetchTotal         *prometheus.CounterVec
	ImagesListed       prometheus.Gauge
	RateLimitDropped   prometheus.Counter
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_http_requests_total",
			Help: "Total number of gallery HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gallery_http_request_duration_seconds",
			Help:    "Gallery request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_fetch_total",
			Help: "Total number of bucket listings by outcome.",
		}, []string{"outcome"}),
		ImagesListed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gallery_images_listed",
			Help: "Number of images returned by the latest successful listing.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gallery_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.FetchTotal,
		m.ImagesListed,
		m.RateLimitDropped,
	)

	return m
}

// ObserveFetch records the result of one bucket listing.
func (m *Metrics) ObserveFetch(count int, failed bool) {
	if failed {
		m.FetchTotal.WithLabelValues("failure").Inc()
		return
	}
	m.FetchTotal.WithLabelValues("success").Inc()
	m.ImagesListed.Set(float64(count))
}

// ObserveRateLimited counts a request rejected by the rate limiter.
func (m *Metrics) ObserveRateLimited() {
	m.RateLimitDropped.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

func normalizeRoute(path string) string {
	switch {
	case path == "/":
		return "/"
	case path == "/metrics", path == "/healthz", path == "/readyz":
		return path
	case path == "/api/v1/images" || strings.HasPrefix(path, "/api/v1/images/"):
		return "/api/v1/images"
	case path == "/api/v1" || strings.HasPrefix(path, "/api/v1/"):
		return "/api/v1/*"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
