package domain

import "time"

// PanelReading is one sensor sample reported by a panel controller.
type PanelReading struct {
	ID          string    `json:"id"`
	PanelID     string    `json:"panel_id"`
	PowerW      float64   `json:"power_w"`
	Temperature float64   `json:"temperature_c"`
	Irradiance  float64   `json:"irradiance_wm2"`
	RecordedAt  time.Time `json:"recorded_at"`
}

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

type Alert struct {
	ID        string        `json:"id"`
	PanelID   string        `json:"panel_id"`
	Rule      string        `json:"rule"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"created_at"`
}

// ReadingStats aggregates readings for one panel over a reporting window.
type ReadingStats struct {
	PanelID        string    `json:"panel_id"`
	Samples        int       `json:"samples"`
	AvgPowerW      float64   `json:"avg_power_w"`
	MaxTemperature float64   `json:"max_temperature_c"`
	AvgIrradiance  float64   `json:"avg_irradiance_wm2"`
	LastRecordedAt time.Time `json:"last_recorded_at"`
}
