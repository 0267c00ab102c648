package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry of the API process.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	uploads         prometheus.Counter
	uploadBytes     prometheus.Histogram
	fileCleanups    *prometheus.CounterVec
	derivedMismatch *prometheus.CounterVec
	cacheInvalidate prometheus.Counter
}

// NewMetricsService registers the collectors.
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

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grade_cache_lookups_total",
		Help: "Class grade list cache lookups by result",
	}, []string{"result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grade_cache_get_seconds",
		Help:    "Latency of cache reads",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grade_cache_set_seconds",
		Help:    "Latency of cache writes",
		Buckets: prometheus.DefBuckets,
	})

	uploads := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ebook_uploads_total",
		Help: "PDF files accepted by the e-book endpoints",
	})

	uploadBytes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ebook_upload_bytes",
		Help:    "Size of accepted PDF uploads",
		Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
	})

	fileCleanups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ebook_file_cleanups_total",
		Help: "Background removals of replaced or orphaned PDF files",
	}, []string{"result"})

	derivedMismatch := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grade_derived_mismatch_total",
		Help: "Requests whose client-computed totals differed from the server computation",
	}, []string{"operation"})

	cacheInvalidate := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grade_cache_invalidation_failures_total",
		Help: "Grade list cache clears that failed after a mutation",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheLatency, cacheWrite,
		uploads, uploadBytes, fileCleanups, derivedMismatch, cacheInvalidate, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLookups:    cacheLookups,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		uploads:         uploads,
		uploadBytes:     uploadBytes,
		fileCleanups:    fileCleanups,
		derivedMismatch: derivedMismatch,
		cacheInvalidate: cacheInvalidate,
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

// ObserveHTTPRequest records request duration and count.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup outcome.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordUpload counts an accepted PDF.
func (m *MetricsService) RecordUpload(size int64) {
	if m == nil {
		return
	}
	m.uploads.Inc()
	m.uploadBytes.Observe(float64(size))
}

// RecordFileCleanup counts a background file removal attempt.
func (m *MetricsService) RecordFileCleanup(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.fileCleanups.WithLabelValues(result).Inc()
}

// RecordDerivedMismatch counts a disagreement between client and server grade math.
func (m *MetricsService) RecordDerivedMismatch(operation string) {
	if m == nil {
		return
	}
	m.derivedMismatch.WithLabelValues(operation).Inc()
}

// RecordCacheInvalidationFailure counts a cache clear that did not go through.
func (m *MetricsService) RecordCacheInvalidationFailure() {
	if m == nil {
		return
	}
	m.cacheInvalidate.Inc()
}
