package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

const sheetName = "Fleet Health"

// Exporter writes a fleet health report as an xlsx workbook for the
// operations team.
type Exporter struct{}

func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(report domain.FleetReport, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create report sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{
		"Panel ID", "Latest Defect", "Confidence", "Analyzed At",
		"Samples", "Avg Power (W)", "Max Temp (C)", "Avg Irradiance (W/m2)",
		"Last Reading", "At-Risk Siblings", "Recommendation",
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("write header %q: %w", header, err)
		}
	}

	for i, panel := range report.Panels {
		row := i + 2
		values := []any{
			panel.PanelID,
			panel.LatestDefect,
			panel.Confidence,
			formatTime(panel.AnalyzedAt),
			panel.Stats.Samples,
			panel.Stats.AvgPowerW,
			panel.Stats.MaxTemperature,
			panel.Stats.AvgIrradiance,
			formatTime(panel.Stats.LastRecordedAt),
			strings.Join(panel.AtRiskSiblings, ", "),
			panel.Recommendation,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("cell name row %d: %w", row, err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	generatedCell, err := excelize.CoordinatesToCellName(1, len(report.Panels)+3)
	if err != nil {
		return fmt.Errorf("footer cell name: %w", err)
	}
	footer := fmt.Sprintf("Generated at %s", formatTime(report.GeneratedAt))
	if err := f.SetCellValue(sheetName, generatedCell, footer); err != nil {
		return fmt.Errorf("write footer: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
