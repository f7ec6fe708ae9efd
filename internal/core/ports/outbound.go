package ports

import (
	"context"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

// Embedder builds vectors for knowledge chunks and query text. The model
// behind it must be the same one used at ingestion time; mismatched models
// silently produce meaningless similarity scores.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits knowledge text into retrievable units.
type Chunker interface {
	Split(text string) []string
}

// KnowledgeStore indexes chunks and performs top-k semantic search.
// Implementations return hits ordered by descending cosine similarity.
type KnowledgeStore interface {
	IndexChunks(ctx context.Context, chunks []domain.KnowledgeChunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, k int) ([]domain.KnowledgeChunkHit, error)
	Count(ctx context.Context) (int, error)
}

// ImageClassifier runs defect classification on a panel image.
type ImageClassifier interface {
	ClassifyImage(ctx context.Context, image []byte, panelID string) (domain.ClassificationResult, error)
}

// RecommendationGenerator produces the maintenance recommendation text.
type RecommendationGenerator interface {
	GenerateRecommendation(ctx context.Context, result domain.ClassificationResult, ragContext string) (string, error)
}

// CameraSource fetches a current snapshot from a panel camera.
type CameraSource interface {
	Snapshot(ctx context.Context, panelID string) ([]byte, string, error)
}

// ReadingRepository persists and aggregates sensor readings.
type ReadingRepository interface {
	SaveReading(ctx context.Context, reading *domain.PanelReading) error
	StatsByPanel(ctx context.Context) ([]domain.ReadingStats, error)
}

// AnalysisRepository persists analysis outcomes.
type AnalysisRepository interface {
	SaveAnalysis(ctx context.Context, record *domain.AnalysisRecord) error
	LatestByPanel(ctx context.Context) ([]domain.AnalysisRecord, error)
	GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error)
}

// MessageQueue moves readings and alerts between api and worker.
type MessageQueue interface {
	PublishReading(ctx context.Context, reading domain.PanelReading) error
	SubscribeReadings(ctx context.Context, handler func(context.Context, domain.PanelReading) error) error
	PublishAlert(ctx context.Context, alert domain.Alert) error
}

// TopologyStore answers plant wiring questions, e.g. which panels share a
// string with a defective one.
type TopologyStore interface {
	RelatedPanels(ctx context.Context, panelID string) ([]string, error)
}

// ReportExporter writes a fleet report to a file.
type ReportExporter interface {
	Export(report domain.FleetReport, path string) error
}

// AlertRules evaluates telemetry and classification against configured thresholds.
type AlertRules interface {
	EvaluateReading(reading domain.PanelReading) []domain.Alert
	EvaluateClassification(result domain.ClassificationResult) []domain.Alert
}
