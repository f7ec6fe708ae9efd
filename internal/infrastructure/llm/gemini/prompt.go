package gemini

import (
	"fmt"
	"strings"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

type defectGuidance struct {
	urgencyThreshold float64
	safetyRisk       string
	typicalActions   string
	inspectionFocus  string
}

var defectGuidanceTable = map[domain.DefectClass]defectGuidance{
	domain.DefectDusty: {
		urgencyThreshold: 0.7,
		safetyRisk:       "Low - accumulation can mask other issues",
		typicalActions:   "Cleaning with deionized water, early morning/evening timing to reduce thermal stress",
		inspectionFocus:  "Surface cleanliness, residue verification, cracks under dust",
	},
	domain.DefectBirdDrop: {
		urgencyThreshold: 0.6,
		safetyRisk:       "Medium - can create localized hotspots and mismatch losses",
		typicalActions:   "Careful removal, subsequent cleaning, hotspot monitoring",
		inspectionFocus:  "Hotspot development, thermal imaging confirmation, cell integrity",
	},
	domain.DefectPhysicalDamage: {
		urgencyThreshold: 0.5,
		safetyRisk:       "High - may cause moisture ingress and rapid performance decline",
		typicalActions:   "Immediate visual assessment, potential electrical isolation",
		inspectionFocus:  "Crack severity, encapsulation integrity, frame gaps, conductor exposure",
	},
	domain.DefectElectricalDamage: {
		urgencyThreshold: 0.4,
		safetyRisk:       "Critical - fire hazard, electrical shock risk",
		typicalActions:   "Immediate isolation, professional assessment required, safety protocols",
		inspectionFocus:  "Burn marks, discoloration, connector integrity, conductor damage",
	},
	domain.DefectSnowCovered: {
		urgencyThreshold: 0.8,
		safetyRisk:       "Medium - no immediate electrical hazard, but complete power loss",
		typicalActions:   "Monitor for natural melting, avoid thermal shock from hot water",
		inspectionFocus:  "Ice/snow accumulation depth, underlying panel condition after removal",
	},
	domain.DefectClean: {
		urgencyThreshold: 1.0,
		safetyRisk:       "None - normal operation",
		typicalActions:   "Standard maintenance schedule, no immediate intervention",
		inspectionFocus:  "Routine performance monitoring, schedule next maintenance",
	},
}

func urgencyLevel(defect domain.DefectClass, confidence float64) string {
	guidance := defectGuidanceTable[defect]
	threshold := guidance.urgencyThreshold
	if threshold == 0 {
		threshold = 0.6
	}

	switch defect {
	case domain.DefectElectricalDamage, domain.DefectPhysicalDamage:
		switch {
		case confidence > 0.8:
			return "CRITICAL - Immediate action required (within 1 hour)"
		case confidence > threshold:
			return "HIGH - Action required same day"
		default:
			return "MEDIUM - Action required within 48 hours"
		}
	case domain.DefectSnowCovered:
		if confidence > 0.9 {
			return "MEDIUM - Monitor, action if not clearing naturally"
		}
		return "LOW - Monitor for natural clearance"
	case domain.DefectBirdDrop:
		if confidence > 0.7 {
			return "MEDIUM - Schedule cleaning and monitoring"
		}
		return "LOW-MEDIUM - Verify and schedule cleaning"
	case domain.DefectDusty:
		if confidence > 0.8 {
			return "LOW-MEDIUM - Schedule cleaning soon"
		}
		return "LOW - Routine cleaning schedule"
	default:
		return "LOW - Continue standard monitoring"
	}
}

func buildRecommendationPrompt(result domain.ClassificationResult, ragContext string) string {
	defect := result.PrimaryDefect
	panelID := result.PanelID
	if panelID == "" {
		panelID = "Unknown"
	}
	confidence := fmt.Sprintf("%.1f%%", result.Confidence*100)
	class := domain.DefectClass(result.PrimaryDefect)
	guidance := defectGuidanceTable[class]
	urgency := urgencyLevel(class, result.Confidence)

	var b strings.Builder
	b.WriteString("You are an expert solar PV operations assistant specialized in defect identification and technician guidance.\n")
	b.WriteString("DEFECT TYPE: " + defect + "\n")
	b.WriteString("PANEL ID: " + panelID + "\n")
	b.WriteString("MODEL CONFIDENCE: " + confidence + "\n")
	b.WriteString("\n")
	b.WriteString("YOUR TASK:\n")
	b.WriteString("1. Analyze the detected defect using the retrieved solar panel knowledge base\n")
	b.WriteString("2. Determine severity, impact, and required actions\n")
	b.WriteString("3. Use ONLY facts from the retrieved knowledge - do NOT invent procedures\n")
	b.WriteString("4. If critical information is missing, explicitly state 'Not found in retrieved knowledge'\n")
	b.WriteString("\n")
	b.WriteString("DEFECT-SPECIFIC CONTEXT:\n")
	b.WriteString("- Defect: " + defect + "\n")
	b.WriteString(fmt.Sprintf("- Expected Urgency Threshold: %g\n", guidance.urgencyThreshold))
	b.WriteString("- Safety Risk Level: " + orUnknown(guidance.safetyRisk) + "\n")
	b.WriteString("- Typical Maintenance Actions: " + orUnknown(guidance.typicalActions) + "\n")
	b.WriteString("- Critical Inspection Points: " + orUnknown(guidance.inspectionFocus) + "\n")
	b.WriteString("\n")
	b.WriteString("OUTPUT FORMAT (STRICTLY FOLLOW):\n")
	b.WriteString("Use GitHub-flavored Markdown. No preamble, no greeting, no emojis.\n")
	b.WriteString("Section headings must be exactly as shown. Use bullet points for details.\n")
	b.WriteString("\n")
	b.WriteString("## Summary\n")
	b.WriteString("| Field | Value |\n")
	b.WriteString("|-------|-------|\n")
	b.WriteString("| **Panel ID** | " + panelID + " |\n")
	b.WriteString("| **Defect Detected** | " + defect + " |\n")
	b.WriteString("| **Model Confidence** | " + confidence + " |\n")
	b.WriteString("| **Urgency Level** | " + urgency + " |\n")
	b.WriteString("| **Action Required** | See immediate actions below |\n")
	b.WriteString("\n")
	b.WriteString("## 1) Defect Analysis\n")
	b.WriteString("### What this defect means:\n")
	b.WriteString("Explain in simple technical language:\n")
	b.WriteString("- Physical description of the defect\n")
	b.WriteString("- Why it occurs on solar panels\n")
	b.WriteString("- Immediate impacts on power generation\n")
	b.WriteString("- Secondary risks (if any)\n")
	b.WriteString("\n")
	b.WriteString("### Expected Power Impact:\n")
	b.WriteString("- Primary impact (e.g., power loss %, performance ratio drop)\n")
	b.WriteString("- Timeline of degradation\n")
	b.WriteString("- Risk of escalation without intervention\n")
	b.WriteString("\n")
	b.WriteString("## 2) Safety Assessment\n")
	b.WriteString("### Immediate Safety Concerns:\n")
	b.WriteString("- Electrical hazard risk (High/Medium/Low/None)\n")
	b.WriteString("- Environmental hazard risk (e.g., thermal shock, avalanche)\n")
	b.WriteString("- Technician safety requirements and PPE\n")
	b.WriteString("- Isolation requirements (if applicable)\n")
	b.WriteString("\n")
	b.WriteString("## 3) Immediate Actions (First 15-30 Minutes)\n")
	b.WriteString("### Do FIRST:\n")
	b.WriteString("1. [First safety/assessment step]\n")
	b.WriteString("2. [Safety isolation/notification if required]\n")
	b.WriteString("3. [Initial visual confirmation]\n")
	b.WriteString("4. [Who to notify and escalation path]\n")
	b.WriteString("5. [Critical next steps]\n")
	b.WriteString("\n")
	b.WriteString("### DO NOT:\n")
	b.WriteString("- [List any warnings about incorrect procedures]\n")
	b.WriteString("- [Safety violations to avoid]\n")
	b.WriteString("\n")
	b.WriteString("## 4) Maintenance Procedure (SOP-Based)\n")
	b.WriteString("### Required Equipment & Materials:\n")
	b.WriteString("- [Tools needed]\n")
	b.WriteString("- [Safety equipment]\n")
	b.WriteString("- [Consumables]\n")
	b.WriteString("\n")
	b.WriteString("### Step-by-Step Procedure:\n")
	b.WriteString("1. [Preparation step]\n")
	b.WriteString("2. [Main procedure step]\n")
	b.WriteString("3. [Verification step]\n")
	b.WriteString("[Continue with actual SOP steps from knowledge base]\n")
	b.WriteString("\n")
	b.WriteString("### Post-Action Verification:\n")
	b.WriteString("- Visual inspection checklist\n")
	b.WriteString("- Performance testing requirements\n")
	b.WriteString("- Success criteria\n")
	b.WriteString("\n")
	b.WriteString("## 5) Documentation & Follow-up\n")
	b.WriteString("### Required Documentation:\n")
	b.WriteString("- Panel ID, defect type, severity\n")
	b.WriteString("- Date/time of detection and action\n")
	b.WriteString("- Technician name and credentials\n")
	b.WriteString("- Before/after photos (if applicable)\n")
	b.WriteString("- Performance metrics post-repair\n")
	b.WriteString("\n")
	b.WriteString("### Follow-up Schedule:\n")
	b.WriteString("- Next inspection date\n")
	b.WriteString("- Monitoring frequency\n")
	b.WriteString("- Performance baseline to track\n")
	b.WriteString("- Escalation triggers for re-inspection\n")
	b.WriteString("\n")
	b.WriteString("## 6) Information Needed for Final Decision\n")
	b.WriteString("### On-site confirmation required:\n")
	b.WriteString("- [Specific measurements or observations needed]\n")
	b.WriteString("- [Environmental factors to verify]\n")
	b.WriteString("- [Performance data to collect]\n")
	b.WriteString("- [Risk factors to assess]\n")
	b.WriteString("\n")
	b.WriteString("---\n\n")
	b.WriteString("RETRIEVED KNOWLEDGE BASE (Use these facts only):\n")
	b.WriteString(ragContext + "\n")
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
