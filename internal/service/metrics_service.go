package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the promotion
// lifecycle and the HTTP surface.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	requestsSubmitted prometheus.Counter
	activations       prometheus.Counter
	rejections        prometheus.Counter
	expirations       prometheus.Counter
	sweepDuration     prometheus.Histogram
	livePromotions    prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Total package catalog cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_misses_total",
		Help: "Total package catalog cache misses",
	})

	requestsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promotion_requests_submitted_total",
		Help: "Total promotion requests submitted by posters",
	})

	activations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promotion_activations_total",
		Help: "Total promotion requests approved and activated",
	})

	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promotion_rejections_total",
		Help: "Total promotion requests rejected",
	})

	expirations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promotion_expirations_total",
		Help: "Total promotions retired by the expiration sweeper",
	})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "promotion_sweep_duration_seconds",
		Help:    "Duration of expiration sweep passes",
		Buckets: prometheus.DefBuckets,
	})

	livePromotions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "promotions_live",
		Help: "Number of promotions currently active",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		requestsSubmitted, activations, rejections, expirations, sweepDuration, livePromotions, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		requestsSubmitted: requestsSubmitted,
		activations:       activations,
		rejections:        rejections,
		expirations:       expirations,
		sweepDuration:     sweepDuration,
		livePromotions:    livePromotions,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup records a catalog cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordRequestSubmitted counts a newly submitted promotion request.
func (m *MetricsService) RecordRequestSubmitted() {
	if m == nil {
		return
	}
	m.requestsSubmitted.Inc()
}

// RecordActivation counts an approved request and its live promotion.
func (m *MetricsService) RecordActivation() {
	if m == nil {
		return
	}
	m.activations.Inc()
	m.livePromotions.Inc()
}

// RecordRejection counts a rejected request.
func (m *MetricsService) RecordRejection() {
	if m == nil {
		return
	}
	m.rejections.Inc()
}

// RecordSweep records one sweep pass and the promotions it retired.
func (m *MetricsService) RecordSweep(retired int, duration time.Duration) {
	if m == nil {
		return
	}
	m.expirations.Add(float64(retired))
	m.livePromotions.Sub(float64(retired))
	m.sweepDuration.Observe(duration.Seconds())
}
