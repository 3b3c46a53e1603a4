package engine

import (
	"log/slog"
	"strconv"
	"strings"
)

// InputKind is the classification of a raw inbound input.
type InputKind string

const (
	// KindExactTrigger is an exact button/menu id or a recognized keyword.
	KindExactTrigger InputKind = "EXACT_TRIGGER"
	// KindNumeric is a pure numeric input, optionally with a unit token.
	KindNumeric InputKind = "NUMERIC"
	// KindFreeText is anything else; routed to the generative fallback when
	// no deterministic transition matches.
	KindFreeText InputKind = "FREE_TEXT"
)

// MainMenuTrigger is the synthetic trigger id produced for the keyword that
// returns to the main menu (re-enters the plan gate).
const MainMenuTrigger = "KEYWORD_MAIN_MENU"

// ClassifiedInput is the result of classifying raw input against a page.
type ClassifiedInput struct {
	Kind  InputKind
	Value string  // trigger id for EXACT_TRIGGER, raw text otherwise
	Num   float64 // parsed value for NUMERIC
	Field string  // measurement field the numeric value belongs to
}

// exactButtonIDs is the closed set of deterministic button/callback ids,
// taken from the menu tables of every domain.
var exactButtonIDs = map[string]struct{}{
	"APPOINTMENTS": {}, "MEASUREMENTS": {}, "MEASUREMENTS_REPORT": {},
	"INVOICE_LABS": {}, "MEDS_GLP": {}, "QUESTION_TYPE": {},
	"NO_NEEDED_QUESTION_PATIENT": {}, "PATIENT_COMPLAINT": {},
	"APPOINTMENTS_LIST_SEND": {}, "APPOINTMENT_RESCHEDULER": {}, "SEND_QUESTION": {},
	"LOG_WEIGHT": {}, "LOG_GLUCOSE_FASTING": {}, "LOG_GLUCOSE_POST_MEAL": {},
	"LOG_HIP": {}, "LOG_WAIST": {}, "LOG_NECK": {},
	"DIABETES_QUESTION": {}, "NUTRITION_QUESTION": {}, "PSYCHOLOGY_QUESTION": {},
	"SUPPLIES_QUESTION": {}, "HIGH_SPECIALIZATION_QUESTION": {},
	"INVOICE": {}, "UPLOAD_LABS": {}, "CALL_SUPPORT": {},
	"FULL_REPORT": {}, "GLUCOSE_REPORT": {}, "BACK_TO_MENU": {},
}

// mainMenuKeywords are greetings and navigation words that re-enter the plan
// gate. Matched exactly after trimming and lowercasing.
var mainMenuKeywords = map[string]struct{}{
	"hola": {}, "inicio": {}, "menu": {}, "menú": {}, "opciones": {},
	"start": {}, "comenzar": {}, "hola doctor": {}, "dr clivi": {},
}

// unitFields maps recognized unit tokens to measurement fields, used when the
// current page does not declare an expected field.
var unitFields = map[string]string{
	"mg/dl": FieldGlucoseFasting,
	"mgdl":  FieldGlucoseFasting,
	"kg":    FieldWeight,
	"kgs":   FieldWeight,
	"cm":    FieldWaist,
}

// Classify decides whether raw input is a deterministic trigger, a numeric
// measurement, or free text for the generative fallback. Menu ids take
// precedence over data entry: input that parses both ways is EXACT_TRIGGER.
func Classify(page *Page, raw string) ClassifiedInput {
	trimmed := strings.TrimSpace(raw)
	upper := strings.ToUpper(trimmed)
	lower := strings.ToLower(trimmed)

	if _, ok := exactButtonIDs[upper]; ok {
		return ClassifiedInput{Kind: KindExactTrigger, Value: upper}
	}
	if _, ok := mainMenuKeywords[lower]; ok {
		return ClassifiedInput{Kind: KindExactTrigger, Value: MainMenuTrigger}
	}

	if v, field, ok := parseMeasurement(trimmed); ok {
		if page != nil && page.ExpectedField != "" {
			field = page.ExpectedField
		}
		slog.Debug("Classifier parsed numeric input", "value", v, "field", field)
		return ClassifiedInput{Kind: KindNumeric, Value: trimmed, Num: v, Field: field}
	}

	return ClassifiedInput{Kind: KindFreeText, Value: trimmed}
}

// parseMeasurement parses "95", "95.5", "95 mg/dl" or "70.5kg" style input.
// The returned field is derived from the unit token and may be empty.
func parseMeasurement(s string) (float64, string, bool) {
	if s == "" {
		return 0, "", false
	}
	num := s
	field := ""
	if i := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r == '.' || r == ',')
	}); i > 0 {
		unit := strings.ToLower(strings.TrimSpace(s[i:]))
		f, known := unitFields[unit]
		if !known {
			return 0, "", false
		}
		num = s[:i]
		field = f
	}
	num = strings.ReplaceAll(num, ",", ".")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, "", false
	}
	return v, field, true
}
