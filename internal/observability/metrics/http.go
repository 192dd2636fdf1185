package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	analyzeTotal       *prometheus.CounterVec
	matchedSchemes     *prometheus.HistogramVec
	analyzeDuration    *prometheus.HistogramVec
	memoryHitsTotal    *prometheus.CounterVec
	memorySaveFailures *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "yd",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	analyzeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yd",
			Subsystem: "analyze",
			Name:      "requests_total",
			Help:      "Total completed analyze requests by status.",
		},
		[]string{"service", "status"},
	)
	matchedSchemes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yd",
			Subsystem: "analyze",
			Name:      "matched_schemes",
			Help:      "Distribution of matched schemes per successful analyze request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)
	analyzeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yd",
			Subsystem: "analyze",
			Name:      "duration_seconds",
			Help:      "Analyze execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	memoryHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yd",
			Subsystem: "memory",
			Name:      "hits_total",
			Help:      "Total recalled prior cases across analyze requests.",
		},
		[]string{"service"},
	)
	memorySaveFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yd",
			Subsystem: "memory",
			Name:      "save_failures_total",
			Help:      "Total case memory save failures on the analyze path.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		analyzeTotal,
		matchedSchemes,
		analyzeDuration,
		memoryHitsTotal,
		memorySaveFailures,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		analyzeTotal:       analyzeTotal,
		matchedSchemes:     matchedSchemes,
		analyzeDuration:    analyzeDuration,
		memoryHitsTotal:    memoryHitsTotal,
		memorySaveFailures: memorySaveFailures,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/cases/"):
		return "/v1/cases/{case_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordAnalyze(service, status string, matchCount int, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.analyzeTotal.WithLabelValues(service, status).Inc()
	if status != "success" {
		return
	}
	m.matchedSchemes.WithLabelValues(service).Observe(float64(matchCount))
	m.analyzeDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordMemoryHits(service string, hits int) {
	if hits <= 0 {
		return
	}
	m.memoryHitsTotal.WithLabelValues(service).Add(float64(hits))
}

func (m *HTTPServerMetrics) RecordMemorySaveFailure(service string) {
	m.memorySaveFailures.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
