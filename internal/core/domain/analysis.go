package domain

import "time"

type AnalysisStatus string

const (
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisDegraded  AnalysisStatus = "degraded"
)

// AnalysisRecord is the persisted outcome of one analysis request:
// classifier verdict, the retrieval context that backed the
// recommendation, and the recommendation text itself.
type AnalysisRecord struct {
	ID             string               `json:"id"`
	PanelID        string               `json:"panel_id"`
	Classification ClassificationResult `json:"classification"`
	Query          string               `json:"query"`
	Context        string               `json:"context"`
	ContextSources int                  `json:"context_sources"`
	Recommendation string               `json:"recommendation"`
	Status         AnalysisStatus       `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
}

// PanelHealth is one row of the fleet health report.
type PanelHealth struct {
	PanelID        string       `json:"panel_id"`
	LatestDefect   string       `json:"latest_defect,omitempty"`
	Confidence     float64      `json:"confidence,omitempty"`
	Recommendation string       `json:"recommendation,omitempty"`
	Stats          ReadingStats `json:"stats"`
	AtRiskSiblings []string     `json:"at_risk_siblings,omitempty"`
	AnalyzedAt     time.Time    `json:"analyzed_at,omitempty"`
}

type FleetReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Panels      []PanelHealth `json:"panels"`
}
