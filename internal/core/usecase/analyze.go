package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
	"github.com/kirillkom/solar-panel-monitor/internal/core/ports"
)

// AnalyzeUseCase runs one analysis request end to end: classify the image,
// build the retrieval query, fetch knowledge context, generate the
// recommendation, persist the record and raise alerts for actionable
// defects. The whole pipeline is synchronous within one request.
type AnalyzeUseCase struct {
	classifier ports.ImageClassifier
	retriever  ports.ContextRetriever
	generator  ports.RecommendationGenerator
	analyses   ports.AnalysisRepository
	queue      ports.MessageQueue
	rules      ports.AlertRules
	topK       int
}

func NewAnalyzeUseCase(
	classifier ports.ImageClassifier,
	retriever ports.ContextRetriever,
	generator ports.RecommendationGenerator,
	analyses ports.AnalysisRepository,
	queue ports.MessageQueue,
	rules ports.AlertRules,
	topK int,
) *AnalyzeUseCase {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &AnalyzeUseCase{
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		analyses:   analyses,
		queue:      queue,
		rules:      rules,
		topK:       topK,
	}
}

func (uc *AnalyzeUseCase) AnalyzeImage(ctx context.Context, image []byte, panelID string) (*domain.AnalysisRecord, error) {
	if len(image) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze image", fmt.Errorf("empty image payload"))
	}

	result, err := uc.classifier.ClassifyImage(ctx, image, panelID)
	if err != nil {
		return nil, fmt.Errorf("classify image: %w", err)
	}
	result.PanelID = panelID

	query := BuildQuery(result)

	status := domain.AnalysisCompleted
	contexts, err := uc.retriever.Retrieve(ctx, query, uc.topK)
	if err != nil {
		// Retrieval without a query vector cannot proceed, but the
		// analysis still can: the prompt notes context is unavailable.
		if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
			return nil, fmt.Errorf("retrieve context: %w", err)
		}
		slog.Warn("retrieval_degraded", "panel_id", panelID, "error", err)
		contexts = nil
		status = domain.AnalysisDegraded
	}
	ragContext := FormatContext(contexts)

	recommendation, err := uc.generator.GenerateRecommendation(ctx, result, ragContext)
	if err != nil {
		// Rate limiting surfaces to the caller so it can back off and
		// retry; any other generator failure still leaves a persisted
		// classification worth acting on.
		if domain.IsKind(err, domain.ErrRateLimited) {
			return nil, fmt.Errorf("generate recommendation: %w", err)
		}
		slog.Warn("recommendation_degraded", "panel_id", panelID, "error", err)
		recommendation = ""
		status = domain.AnalysisDegraded
	}

	record := &domain.AnalysisRecord{
		ID:             uuid.NewString(),
		PanelID:        panelID,
		Classification: result,
		Query:          query,
		Context:        ragContext,
		ContextSources: len(contexts),
		Recommendation: recommendation,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
	}

	if err := uc.analyses.SaveAnalysis(ctx, record); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	uc.publishAlerts(ctx, result)

	return record, nil
}

// Alert publication is best effort: a broker outage must not fail an
// analysis that already produced a recommendation.
func (uc *AnalyzeUseCase) publishAlerts(ctx context.Context, result domain.ClassificationResult) {
	if uc.rules == nil || uc.queue == nil || !result.Actionable() {
		return
	}
	for _, alert := range uc.rules.EvaluateClassification(result) {
		if err := uc.queue.PublishAlert(ctx, alert); err != nil {
			slog.Warn("alert_publish_failed", "panel_id", alert.PanelID, "rule", alert.Rule, "error", err)
		}
	}
}
