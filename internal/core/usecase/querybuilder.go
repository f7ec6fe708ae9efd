package usecase

import (
	"strconv"
	"strings"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

// Fixed anchors bias the query embedding toward the maintenance-procedure
// language present in the knowledge base; raw classifier output alone is
// too terse to retrieve well.
const (
	queryAnchorLead = "solar panel defect knowledge"

	emptyPredictionsMarker = "(none)"
)

var queryAnchorsTail = []string{
	"impact and risk",
	"maintenance SOP",
	"decision thresholds",
	"cleaning isolation replacement criteria",
}

// BuildQuery renders a classification result into a retrieval query.
// It is a pure fixed template: no normalization, no stemming, no query
// expansion. Missing fields render as-is; validation is the caller's
// concern.
func BuildQuery(result domain.ClassificationResult) string {
	parts := make([]string, 0, 6+len(queryAnchorsTail))
	parts = append(parts,
		queryAnchorLead,
		"primary_defect: "+result.PrimaryDefect,
		"confidence: "+strconv.FormatFloat(result.Confidence, 'g', -1, 64),
		"top_predictions: "+renderPredictions(result.TopPredictions),
	)
	if result.PanelID != "" {
		parts = append(parts, "panel_id: "+result.PanelID)
	}
	parts = append(parts, queryAnchorsTail...)

	return strings.Join(parts, "\n")
}

func renderPredictions(predictions []domain.Prediction) string {
	if len(predictions) == 0 {
		return emptyPredictionsMarker
	}

	rendered := make([]string, 0, len(predictions))
	for _, p := range predictions {
		rendered = append(rendered, p.Label+":"+strconv.FormatFloat(p.Score, 'g', -1, 64))
	}
	return strings.Join(rendered, ", ")
}
