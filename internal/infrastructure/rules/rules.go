package rules

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

// ReadingRule fires when a sensor sample crosses a threshold. Zero
// thresholds are ignored, so a rule checks only the fields it sets.
type ReadingRule struct {
	Name           string  `yaml:"name"`
	MaxTemperature float64 `yaml:"max_temperature_c"`
	MinPowerW      float64 `yaml:"min_power_w"`
	MinIrradiance  float64 `yaml:"min_irradiance_wm2"`
	Severity       string  `yaml:"severity"`
	Message        string  `yaml:"message"`
}

// DefectRule fires when the classifier reports a defect at or above the
// configured confidence.
type DefectRule struct {
	Defect        string  `yaml:"defect"`
	MinConfidence float64 `yaml:"min_confidence"`
	Severity      string  `yaml:"severity"`
	Message       string  `yaml:"message"`
}

type Rules struct {
	ReadingRules []ReadingRule `yaml:"reading_rules"`
	DefectRules  []DefectRule  `yaml:"defect_rules"`
}

func Load(path string) (*Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alert rules: %w", err)
	}
	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parse alert rules: %w", err)
	}
	return &rules, nil
}

// Default covers the common failure modes when no rules file is deployed.
func Default() *Rules {
	return &Rules{
		ReadingRules: []ReadingRule{
			{
				Name:           "overtemperature",
				MaxTemperature: 70,
				Severity:       "critical",
				Message:        "panel temperature above safe operating limit",
			},
			{
				Name:          "underperformance",
				MinPowerW:     30,
				MinIrradiance: 400,
				Severity:      "warning",
				Message:       "panel produces almost no power despite good irradiance",
			},
		},
		DefectRules: []DefectRule{
			{Defect: string(domain.DefectElectricalDamage), MinConfidence: 0.4, Severity: "critical", Message: "electrical damage detected, isolate the string"},
			{Defect: string(domain.DefectPhysicalDamage), MinConfidence: 0.5, Severity: "critical", Message: "physical damage detected, schedule inspection"},
			{Defect: string(domain.DefectBirdDrop), MinConfidence: 0.6, Severity: "warning", Message: "bird droppings detected, hotspot risk"},
			{Defect: string(domain.DefectDusty), MinConfidence: 0.7, Severity: "info", Message: "dust accumulation detected, schedule cleaning"},
			{Defect: string(domain.DefectSnowCovered), MinConfidence: 0.8, Severity: "info", Message: "snow cover detected, monitor for clearance"},
		},
	}
}

func (r *Rules) EvaluateReading(reading domain.PanelReading) []domain.Alert {
	var alerts []domain.Alert
	for _, rule := range r.ReadingRules {
		if rule.MaxTemperature > 0 && reading.Temperature > rule.MaxTemperature {
			alerts = append(alerts, newAlert(reading.PanelID, rule.Name, rule.Severity, rule.Message))
			continue
		}
		if rule.MinPowerW > 0 && reading.PowerW < rule.MinPowerW {
			if rule.MinIrradiance > 0 && reading.Irradiance < rule.MinIrradiance {
				continue // too dark to expect output
			}
			alerts = append(alerts, newAlert(reading.PanelID, rule.Name, rule.Severity, rule.Message))
		}
	}
	return alerts
}

func (r *Rules) EvaluateClassification(result domain.ClassificationResult) []domain.Alert {
	if !result.Actionable() {
		return nil
	}

	var alerts []domain.Alert
	for _, rule := range r.DefectRules {
		if rule.Defect != result.PrimaryDefect {
			continue
		}
		if result.Confidence < rule.MinConfidence {
			continue
		}
		name := "defect_" + rule.Defect
		alerts = append(alerts, newAlert(result.PanelID, name, rule.Severity, rule.Message))
	}
	return alerts
}

func newAlert(panelID, rule, severity, message string) domain.Alert {
	sev := domain.AlertSeverity(severity)
	switch sev {
	case domain.SeverityInfo, domain.SeverityWarning, domain.SeverityCritical:
	default:
		sev = domain.SeverityWarning
	}
	return domain.Alert{
		ID:        uuid.NewString(),
		PanelID:   panelID,
		Rule:      rule,
		Severity:  sev,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}
