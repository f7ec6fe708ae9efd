package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return db, mock, func() { _ = db.Close() }
}

func TestSaveReadingInsertsRow(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	recordedAt := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO panel_readings").
		WithArgs("r-1", "P-1", 245.5, 41.2, 830.0, recordedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewReadingRepository(db)
	err := repo.SaveReading(context.Background(), &domain.PanelReading{
		ID:          "r-1",
		PanelID:     "P-1",
		PowerW:      245.5,
		Temperature: 41.2,
		Irradiance:  830.0,
		RecordedAt:  recordedAt,
	})
	if err != nil {
		t.Fatalf("SaveReading: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStatsByPanelScansAggregates(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	last := time.Date(2026, 8, 23, 13, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"panel_id", "samples", "avg_power_w", "max_temperature_c", "avg_irradiance_wm2", "last_recorded_at",
	}).
		AddRow("P-1", 12, 240.0, 45.5, 810.0, last).
		AddRow("P-2", 4, 180.0, 39.0, 700.0, last)

	mock.ExpectQuery("SELECT panel_id,").WillReturnRows(rows)

	repo := NewReadingRepository(db)
	stats, err := repo.StatsByPanel(context.Background())
	if err != nil {
		t.Fatalf("StatsByPanel: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(stats))
	}
	if stats[0].PanelID != "P-1" || stats[0].Samples != 12 || stats[0].MaxTemperature != 45.5 {
		t.Fatalf("unexpected first row: %+v", stats[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetAnalysisByIDReturnsDomainNotFound(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	mock.ExpectQuery("SELECT id, panel_id, classification").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := NewAnalysisRepository(db)
	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveAnalysisMarshalsClassification(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	createdAt := time.Date(2026, 8, 23, 14, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO panel_analyses").
		WithArgs("a-1", "P-1", sqlmock.AnyArg(), "query", "context", 2, "rec", "completed", createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAnalysisRepository(db)
	err := repo.SaveAnalysis(context.Background(), &domain.AnalysisRecord{
		ID:      "a-1",
		PanelID: "P-1",
		Classification: domain.ClassificationResult{
			PrimaryDefect: "Dusty",
			Confidence:    0.9,
		},
		Query:          "query",
		Context:        "context",
		ContextSources: 2,
		Recommendation: "rec",
		Status:         domain.AnalysisCompleted,
		CreatedAt:      createdAt,
	})
	if err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestByPanelDecodesClassification(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	classification, _ := json.Marshal(domain.ClassificationResult{
		PrimaryDefect: "Snow-Covered",
		Confidence:    0.88,
	})
	createdAt := time.Date(2026, 8, 23, 15, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "panel_id", "classification", "query", "context", "context_sources", "recommendation", "status", "created_at",
	}).AddRow("a-2", "P-9", classification, "q", "ctx", 3, "wait for melt", "completed", createdAt)

	mock.ExpectQuery("SELECT DISTINCT ON \\(panel_id\\)").WillReturnRows(rows)

	repo := NewAnalysisRepository(db)
	records, err := repo.LatestByPanel(context.Background())
	if err != nil {
		t.Fatalf("LatestByPanel: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Classification.PrimaryDefect != "Snow-Covered" {
		t.Fatalf("unexpected classification: %+v", records[0].Classification)
	}
	if records[0].Status != domain.AnalysisCompleted {
		t.Fatalf("unexpected status: %s", records[0].Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
