package engine

import (
	"log/slog"
	"strings"

	"github.com/clivihealth/careflow/internal/models"
)

// EmergencyRule redirects any in-progress conversation to a critical-response
// page. Numeric rules are evaluated before keyword rules; the first match
// wins. A match is never deduplicated within a session: every occurrence
// re-triggers escalation.
type EmergencyRule struct {
	Label    string
	Field    string      // measurement field for numeric rules
	Range    *ValueRange // numeric predicate
	Keywords []string    // free-text phrases for keyword rules
	Severity models.Severity
	Target   models.PageID
}

// EmergencyDetector scans every inbound message before any page transition.
type EmergencyDetector struct {
	numeric []EmergencyRule
	keyword []EmergencyRule
}

// glucoseEmergencyLow and glucoseEmergencyHigh are the mg/dl thresholds that
// escalate regardless of the current page. The 180-300 band is a conditional
// response handled by the measurement pages, not by the detector.
const (
	glucoseEmergencyLow  = 70.0
	glucoseEmergencyHigh = 300.0
)

// NewEmergencyDetector builds the default rule set: glucose thresholds plus
// Spanish phrases for chest pain, breathing trouble, fainting and suicidal
// ideation.
func NewEmergencyDetector() *EmergencyDetector {
	below := Below(glucoseEmergencyLow)
	above := Above(glucoseEmergencyHigh)
	return &EmergencyDetector{
		numeric: []EmergencyRule{
			{
				Label:    "hypoglycemia",
				Field:    "glucose",
				Range:    &below,
				Severity: models.SeverityCritical,
				Target:   PageSharedEmergency,
			},
			{
				Label:    "hyperglycemia",
				Field:    "glucose",
				Range:    &above,
				Severity: models.SeverityCritical,
				Target:   PageSharedEmergency,
			},
		},
		keyword: []EmergencyRule{
			{
				Label:    "chest_pain",
				Keywords: []string{"dolor en el pecho", "dolor de pecho", "me duele el pecho", "opresión en el pecho"},
				Severity: models.SeverityCritical,
				Target:   PageSharedEmergency,
			},
			{
				Label:    "breathing",
				Keywords: []string{"no puedo respirar", "falta de aire", "me ahogo"},
				Severity: models.SeverityCritical,
				Target:   PageSharedEmergency,
			},
			{
				Label:    "fainting",
				Keywords: []string{"me desmayé", "me voy a desmayar", "perdí el conocimiento", "convulsión"},
				Severity: models.SeverityCritical,
				Target:   PageSharedEmergency,
			},
			{
				Label:    "suicidal_ideation",
				Keywords: []string{"no quiero vivir", "quiero morirme", "me quiero morir", "quitarme la vida", "suicidarme", "suicidio"},
				Severity: models.SeverityCritical,
				Target:   PageSharedEmergency,
			},
		},
	}
}

// Scan applies numeric rules against any structured measurement present in
// the message and keyword rules against the free text, in that order. The
// returned rule is nil when no emergency is detected.
func (d *EmergencyDetector) Scan(input ClassifiedInput, raw string) *EmergencyRule {
	if input.Kind == KindNumeric {
		for i := range d.numeric {
			rule := &d.numeric[i]
			if !fieldMatches(rule.Field, input.Field) {
				continue
			}
			if rule.Range != nil && rule.Range.Contains(input.Num) {
				slog.Info("EmergencyDetector numeric rule matched", "rule", rule.Label, "value", input.Num, "field", input.Field)
				return rule
			}
		}
	}

	lower := strings.ToLower(raw)
	for i := range d.keyword {
		rule := &d.keyword[i]
		for _, phrase := range rule.Keywords {
			if strings.Contains(lower, phrase) {
				slog.Info("EmergencyDetector keyword rule matched", "rule", rule.Label)
				return rule
			}
		}
	}
	return nil
}

// fieldMatches reports whether a numeric rule applies to the measurement
// field carried by the input. Glucose rules cover any glucose_* field and
// also bare numbers whose field could not be determined, so an out-of-range
// reading escalates even when the current page is not a measurement page.
func fieldMatches(ruleField, inputField string) bool {
	if ruleField == "glucose" {
		return inputField == "" || strings.HasPrefix(inputField, "glucose")
	}
	return ruleField == inputField
}
