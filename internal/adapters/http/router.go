package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
	"github.com/kirillkom/solar-panel-monitor/internal/core/ports"
	"github.com/kirillkom/solar-panel-monitor/internal/observability/metrics"
)

const maxImageUploadBytes = 16 << 20

type Router struct {
	service   string
	analyzer  ports.PanelAnalyzer
	retriever ports.ContextRetriever
	telemetry ports.TelemetryRecorder
	reports   ports.ReportBuilder
	analyses  ports.AnalysisRepository
	camera    ports.CameraSource
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	service string,
	analyzer ports.PanelAnalyzer,
	retriever ports.ContextRetriever,
	telemetry ports.TelemetryRecorder,
	reports ports.ReportBuilder,
	analyses ports.AnalysisRepository,
	camera ports.CameraSource,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		service:   service,
		analyzer:  analyzer,
		retriever: retriever,
		telemetry: telemetry,
		reports:   reports,
		analyses:  analyses,
		camera:    camera,
		metrics:   serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/analyze", rt.analyzeImage)
	mux.HandleFunc("/v1/retrieve", rt.retrieveContext)
	mux.HandleFunc("/v1/readings", rt.recordReading)
	mux.HandleFunc("/v1/report", rt.fleetReport)
	mux.HandleFunc("/v1/analyses/", rt.getAnalysisByID)
	mux.HandleFunc("/v1/panels/", rt.panelSnapshot)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) analyzeImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadBytes)
	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'image' is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read image payload")
		return
	}
	panelID := strings.TrimSpace(r.FormValue("panel_id"))

	start := time.Now()
	record, err := rt.analyzer.AnalyzeImage(r.Context(), image, panelID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnalysis(rt.service, record.Classification.PrimaryDefect, string(record.Status), record.ContextSources, time.Since(start))
	}

	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) retrieveContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		Query string `json:"query"`
		K     int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	contexts, err := rt.retriever.Retrieve(r.Context(), req.Query, req.K)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contexts": contexts})
}

func (rt *Router) recordReading(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var reading domain.PanelReading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	accepted, err := rt.telemetry.RecordReading(r.Context(), reading)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

func (rt *Router) fleetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	report, err := rt.reports.BuildFleetReport(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) getAnalysisByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/analyses/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "analysis id is required")
		return
	}

	record, err := rt.analyses.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// panelSnapshot proxies the panel camera: GET /v1/panels/{panel_id}/snapshot.
func (rt *Router) panelSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/panels/")
	panelID, action, found := strings.Cut(rest, "/")
	if !found || action != "snapshot" || panelID == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	image, contentType, err := rt.camera.Snapshot(r.Context(), panelID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(image)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), err.Error())
}
