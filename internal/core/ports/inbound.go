package ports

import (
	"context"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

// PanelAnalyzer is the inbound contract for the full analysis pipeline:
// classify, retrieve, format, recommend.
type PanelAnalyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, panelID string) (*domain.AnalysisRecord, error)
}

// ContextRetriever is the inbound contract for the retrieval pipeline alone.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedContext, error)
}

// KnowledgeIngestor loads knowledge files into the vector store.
type KnowledgeIngestor interface {
	IngestDirectory(ctx context.Context, dir string) (int, error)
	EnsureIngested(ctx context.Context, dir string) error
}

// TelemetryRecorder is the inbound contract for accepting sensor readings.
type TelemetryRecorder interface {
	RecordReading(ctx context.Context, reading domain.PanelReading) (*domain.PanelReading, error)
}

// ReadingProcessor consumes queued readings on the worker side.
type ReadingProcessor interface {
	ProcessReading(ctx context.Context, reading domain.PanelReading) error
}

// ReportBuilder assembles the fleet health report.
type ReportBuilder interface {
	BuildFleetReport(ctx context.Context) (*domain.FleetReport, error)
}
