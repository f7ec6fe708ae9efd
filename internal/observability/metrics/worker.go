package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	readingTotal    *prometheus.CounterVec
	readingDuration *prometheus.HistogramVec
	readingLag      *prometheus.HistogramVec
	alertsTotal     *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	readingTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solarmon",
			Subsystem: "worker",
			Name:      "reading_process_total",
			Help:      "Total processed sensor readings by status.",
		},
		[]string{"service", "status"},
	)
	readingDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "solarmon",
			Subsystem: "worker",
			Name:      "reading_process_duration_seconds",
			Help:      "Reading processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	readingLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "solarmon",
			Subsystem: "worker",
			Name:      "reading_lag_seconds",
			Help:      "Delay between reading capture and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service"},
	)
	alertsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solarmon",
			Subsystem: "worker",
			Name:      "alerts_total",
			Help:      "Total alerts raised by severity.",
		},
		[]string{"service", "severity"},
	)

	registry.MustRegister(readingTotal, readingDuration, readingLag, alertsTotal)

	return &WorkerMetrics{
		registry:        registry,
		readingTotal:    readingTotal,
		readingDuration: readingDuration,
		readingLag:      readingLag,
		alertsTotal:     alertsTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) FinishReading(service string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.readingTotal.WithLabelValues(service, status).Inc()
	m.readingDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveReadingLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.readingLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordAlert(service, severity string) {
	m.alertsTotal.WithLabelValues(service, severity).Inc()
}
