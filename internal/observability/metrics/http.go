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

	analysisTotal      *prometheus.CounterVec
	analysisDuration   *prometheus.HistogramVec
	retrievalHitTotal  *prometheus.CounterVec
	retrievalMissTotal *prometheus.CounterVec
	retrievedChunks    *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solarmon",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "solarmon",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "solarmon",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solarmon",
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Total completed analysis requests by detected defect.",
		},
		[]string{"service", "defect", "status"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "solarmon",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solarmon",
			Subsystem: "rag",
			Name:      "retrieval_hit_total",
			Help:      "Total analyses with at least one retrieved context.",
		},
		[]string{"service"},
	)
	retrievalMissTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solarmon",
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total analyses without retrieved context.",
		},
		[]string{"service"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "solarmon",
			Subsystem: "rag",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per analysis.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		analysisTotal,
		analysisDuration,
		retrievalHitTotal,
		retrievalMissTotal,
		retrievedChunks,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		analysisTotal:      analysisTotal,
		analysisDuration:   analysisDuration,
		retrievalHitTotal:  retrievalHitTotal,
		retrievalMissTotal: retrievalMissTotal,
		retrievedChunks:    retrievedChunks,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &metricsStatusRecorder{
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
	case strings.HasPrefix(path, "/v1/panels/"):
		return "/v1/panels/{panel_id}"
	case strings.HasPrefix(path, "/v1/analyses/"):
		return "/v1/analyses/{analysis_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordAnalysis(service, defect, status string, contextSources int, duration time.Duration) {
	if defect == "" {
		defect = "unknown"
	}
	m.analysisTotal.WithLabelValues(service, defect, status).Inc()
	m.analysisDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.retrievedChunks.WithLabelValues(service).Observe(float64(contextSources))

	if contextSources > 0 {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
		return
	}
	m.retrievalMissTotal.WithLabelValues(service).Inc()
}

type metricsStatusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *metricsStatusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *metricsStatusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *metricsStatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
