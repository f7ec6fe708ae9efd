package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
	"github.com/kirillkom/solar-panel-monitor/internal/core/ports"
)

// ReportUseCase assembles the fleet health report from reading aggregates,
// latest analyses, and the plant wiring topology.
type ReportUseCase struct {
	readings ports.ReadingRepository
	analyses ports.AnalysisRepository
	topology ports.TopologyStore
}

func NewReportUseCase(readings ports.ReadingRepository, analyses ports.AnalysisRepository, topology ports.TopologyStore) *ReportUseCase {
	return &ReportUseCase{
		readings: readings,
		analyses: analyses,
		topology: topology,
	}
}

func (uc *ReportUseCase) BuildFleetReport(ctx context.Context) (*domain.FleetReport, error) {
	stats, err := uc.readings.StatsByPanel(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}

	latest, err := uc.analyses.LatestByPanel(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest analyses: %w", err)
	}
	latestByPanel := make(map[string]domain.AnalysisRecord, len(latest))
	for _, record := range latest {
		latestByPanel[record.PanelID] = record
	}

	panels := make(map[string]domain.PanelHealth, len(stats))
	for _, s := range stats {
		panels[s.PanelID] = domain.PanelHealth{PanelID: s.PanelID, Stats: s}
	}
	for panelID, record := range latestByPanel {
		health := panels[panelID]
		health.PanelID = panelID
		health.LatestDefect = record.Classification.PrimaryDefect
		health.Confidence = record.Classification.Confidence
		health.Recommendation = record.Recommendation
		health.AnalyzedAt = record.CreatedAt
		health.AtRiskSiblings = uc.relatedPanels(ctx, record)
		panels[panelID] = health
	}

	out := make([]domain.PanelHealth, 0, len(panels))
	for _, health := range panels {
		out = append(out, health)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PanelID < out[j].PanelID })

	return &domain.FleetReport{
		GeneratedAt: time.Now().UTC(),
		Panels:      out,
	}, nil
}

// Panels wired to the same string as a defective panel are worth flagging
// even before their own imagery shows anything.
func (uc *ReportUseCase) relatedPanels(ctx context.Context, record domain.AnalysisRecord) []string {
	if uc.topology == nil || !record.Classification.Actionable() {
		return nil
	}
	siblings, err := uc.topology.RelatedPanels(ctx, record.PanelID)
	if err != nil {
		slog.Warn("topology_lookup_failed", "panel_id", record.PanelID, "error", err)
		return nil
	}
	return siblings
}
