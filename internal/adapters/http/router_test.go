package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
	"github.com/kirillkom/solar-panel-monitor/internal/observability/metrics"
)

type analyzerFake struct {
	record *domain.AnalysisRecord
	err    error
	image  []byte
	panel  string
}

func (f *analyzerFake) AnalyzeImage(_ context.Context, image []byte, panelID string) (*domain.AnalysisRecord, error) {
	f.image = image
	f.panel = panelID
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type retrieverFake struct {
	contexts []domain.RetrievedContext
	err      error
	query    string
	k        int
}

func (f *retrieverFake) Retrieve(_ context.Context, query string, k int) ([]domain.RetrievedContext, error) {
	f.query = query
	f.k = k
	return f.contexts, f.err
}

type telemetryFake struct {
	err error
}

func (f *telemetryFake) RecordReading(_ context.Context, reading domain.PanelReading) (*domain.PanelReading, error) {
	if f.err != nil {
		return nil, f.err
	}
	reading.ID = "r-1"
	return &reading, nil
}

type reportsFake struct {
	report *domain.FleetReport
	err    error
}

func (f *reportsFake) BuildFleetReport(context.Context) (*domain.FleetReport, error) {
	return f.report, f.err
}

type analysesFake struct {
	records map[string]*domain.AnalysisRecord
}

func (f *analysesFake) SaveAnalysis(context.Context, *domain.AnalysisRecord) error { return nil }
func (f *analysesFake) LatestByPanel(context.Context) ([]domain.AnalysisRecord, error) {
	return nil, nil
}
func (f *analysesFake) GetByID(_ context.Context, id string) (*domain.AnalysisRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get analysis", errors.New(id))
	}
	return record, nil
}

type cameraFake struct {
	image []byte
	err   error
}

func (f *cameraFake) Snapshot(context.Context, string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.image, "image/jpeg", nil
}

type routerFixture struct {
	analyzer  *analyzerFake
	retriever *retrieverFake
	telemetry *telemetryFake
	reports   *reportsFake
	analyses  *analysesFake
	camera    *cameraFake
	handler   http.Handler
}

func newFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		analyzer: &analyzerFake{
			record: &domain.AnalysisRecord{
				ID:      "a-1",
				PanelID: "P-1",
				Classification: domain.ClassificationResult{
					PrimaryDefect: "Dusty",
					Confidence:    0.9,
				},
				Status:         domain.AnalysisCompleted,
				ContextSources: 2,
			},
		},
		retriever: &retrieverFake{},
		telemetry: &telemetryFake{},
		reports:   &reportsFake{report: &domain.FleetReport{GeneratedAt: time.Now().UTC()}},
		analyses:  &analysesFake{records: map[string]*domain.AnalysisRecord{}},
		camera:    &cameraFake{image: []byte("jpeg")},
	}
	router := NewRouter("api-test", f.analyzer, f.retriever, f.telemetry, f.reports, f.analyses, f.camera,
		metrics.NewHTTPServerMetrics("api-test"))
	f.handler = router.Handler()
	return f
}

func multipartImage(t *testing.T, panelID string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "panel.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(image); err != nil {
		t.Fatalf("write image: %v", err)
	}
	if panelID != "" {
		_ = writer.WriteField("panel_id", panelID)
	}
	_ = writer.Close()
	return &body, writer.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestAnalyzeReturnsRecord(t *testing.T) {
	f := newFixture(t)
	body, contentType := multipartImage(t, "P-1", []byte("jpegbytes"))
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if string(f.analyzer.image) != "jpegbytes" || f.analyzer.panel != "P-1" {
		t.Fatalf("analyzer got image=%q panel=%q", f.analyzer.image, f.analyzer.panel)
	}

	var record domain.AnalysisRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if record.ID != "a-1" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestAnalyzeWithoutImageIs400(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyzeRateLimitedIs429(t *testing.T) {
	f := newFixture(t)
	f.analyzer.err = domain.WrapError(domain.ErrRateLimited, "gemini generate", errors.New("quota"))

	body, contentType := multipartImage(t, "P-1", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRetrieveRequiresQuery(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(`{"query":"  "}`))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRetrievePassesQueryAndK(t *testing.T) {
	f := newFixture(t)
	f.retriever.contexts = []domain.RetrievedContext{
		{Rank: 1, Source: "kb.txt", Score: 0.91, Text: "Dusty panels reduce output."},
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(`{"query":"dust impact","k":5}`))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.retriever.query != "dust impact" || f.retriever.k != 5 {
		t.Fatalf("retriever got query=%q k=%d", f.retriever.query, f.retriever.k)
	}
	if !strings.Contains(rec.Body.String(), "kb.txt") {
		t.Fatalf("response missing context: %s", rec.Body.String())
	}
}

func TestRecordReadingAccepted(t *testing.T) {
	f := newFixture(t)
	payload := `{"panel_id":"P-1","power_w":210.5,"temperature_c":40,"irradiance_wm2":800}`
	req := httptest.NewRequest(http.MethodPost, "/v1/readings", strings.NewReader(payload))

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"r-1"`) {
		t.Fatalf("expected assigned id in response: %s", rec.Body.String())
	}
}

func TestRecordReadingValidationError(t *testing.T) {
	f := newFixture(t)
	f.telemetry.err = domain.WrapError(domain.ErrInvalidInput, "record reading", errors.New("panel_id required"))

	req := httptest.NewRequest(http.MethodPost, "/v1/readings", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analyses/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetAnalysisByID(t *testing.T) {
	f := newFixture(t)
	f.analyses.records["a-9"] = &domain.AnalysisRecord{ID: "a-9", PanelID: "P-2"}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analyses/a-9", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"a-9"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestPanelSnapshotProxiesCamera(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/panels/P-3/snapshot", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("unexpected content type: %s", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "jpeg" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestPanelSnapshotCameraDownIs502(t *testing.T) {
	f := newFixture(t)
	f.camera.err = domain.WrapError(domain.ErrCameraUnreachable, "camera snapshot", errors.New("timeout"))

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/panels/P-3/snapshot", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestFleetReport(t *testing.T) {
	f := newFixture(t)
	f.reports.report.Panels = []domain.PanelHealth{{PanelID: "P-1"}}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/report", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"P-1"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analyze", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRequestIDIsPropagatedFromHeader(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}
