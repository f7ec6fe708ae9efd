package domain

// DefectClass values match the labels the ONNX classifier was trained on.
type DefectClass string

const (
	DefectBirdDrop         DefectClass = "Bird-drop"
	DefectClean            DefectClass = "Clean"
	DefectDusty            DefectClass = "Dusty"
	DefectElectricalDamage DefectClass = "Electrical-damage"
	DefectPhysicalDamage   DefectClass = "Physical-Damage"
	DefectSnowCovered      DefectClass = "Snow-Covered"
)

func KnownDefectClasses() []DefectClass {
	return []DefectClass{
		DefectBirdDrop,
		DefectClean,
		DefectDusty,
		DefectElectricalDamage,
		DefectPhysicalDamage,
		DefectSnowCovered,
	}
}

type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ClassificationResult is produced by the inference service. By convention
// PrimaryDefect equals TopPredictions[0].Label; that is not enforced here.
type ClassificationResult struct {
	PanelID        string       `json:"panel_id,omitempty"`
	PrimaryDefect  string       `json:"primary_defect"`
	Confidence     float64      `json:"confidence"`
	TopPredictions []Prediction `json:"top_predictions"`
}

// Actionable reports whether the detected defect warrants maintenance
// attention at all. Clean panels never raise alerts.
func (r ClassificationResult) Actionable() bool {
	return r.PrimaryDefect != "" && r.PrimaryDefect != string(DefectClean)
}
