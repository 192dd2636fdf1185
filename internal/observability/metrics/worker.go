package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	ingestTotal     *prometheus.CounterVec
	ingestDuration  *prometheus.HistogramVec
	ingestInFlight  prometheus.Gauge
	schemesIngested *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yd",
			Subsystem: "worker",
			Name:      "catalog_ingest_total",
			Help:      "Total catalog ingest runs by status.",
		},
		[]string{"service", "status"},
	)
	ingestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yd",
			Subsystem: "worker",
			Name:      "catalog_ingest_duration_seconds",
			Help:      "Catalog ingest duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	ingestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "yd",
			Subsystem: "worker",
			Name:      "catalog_ingest_in_flight",
			Help:      "Number of in-flight catalog ingest runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	schemesIngested := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yd",
			Subsystem: "worker",
			Name:      "schemes_ingested_total",
			Help:      "Total scheme records written to the vector index.",
		},
		[]string{"service"},
	)

	registry.MustRegister(ingestTotal, ingestDuration, ingestInFlight, schemesIngested)

	return &WorkerMetrics{
		registry:        registry,
		ingestTotal:     ingestTotal,
		ingestDuration:  ingestDuration,
		ingestInFlight:  ingestInFlight,
		schemesIngested: schemesIngested,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartIngest() {
	m.ingestInFlight.Inc()
}

func (m *WorkerMetrics) FinishIngest(service string, duration time.Duration, ingested int, err error) {
	m.ingestInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.ingestTotal.WithLabelValues(service, status).Inc()
	m.ingestDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if ingested > 0 {
		m.schemesIngested.WithLabelValues(service).Add(float64(ingested))
	}
}
