package engine

import "testing"

func TestClassifyExactTriggers(t *testing.T) {
	for _, id := range []string{"APPOINTMENTS", "MEASUREMENTS", "LOG_GLUCOSE_FASTING", "PATIENT_COMPLAINT"} {
		got := Classify(nil, id)
		if got.Kind != KindExactTrigger || got.Value != id {
			t.Errorf("Classify(%q) = %+v, want exact trigger", id, got)
		}
	}

	// Button ids are matched case-insensitively.
	got := Classify(nil, "measurements")
	if got.Kind != KindExactTrigger || got.Value != "MEASUREMENTS" {
		t.Errorf("Classify(lowercase id) = %+v, want MEASUREMENTS trigger", got)
	}
}

func TestClassifyMainMenuKeywords(t *testing.T) {
	for _, kw := range []string{"hola", "Hola", "MENÚ", "menu", "inicio", " opciones "} {
		got := Classify(nil, kw)
		if got.Kind != KindExactTrigger || got.Value != MainMenuTrigger {
			t.Errorf("Classify(%q) = %+v, want main menu trigger", kw, got)
		}
	}
}

func TestClassifyNumeric(t *testing.T) {
	cases := []struct {
		raw       string
		wantNum   float64
		wantField string
	}{
		{"95", 95, ""},
		{"95.5", 95.5, ""},
		{"70,5", 70.5, ""},
		{"95 mg/dl", 95, FieldGlucoseFasting},
		{"70.5kg", 70.5, FieldWeight},
		{"88 cm", 88, FieldWaist},
	}
	for _, tc := range cases {
		got := Classify(nil, tc.raw)
		if got.Kind != KindNumeric {
			t.Errorf("Classify(%q).Kind = %s, want NUMERIC", tc.raw, got.Kind)
			continue
		}
		if got.Num != tc.wantNum {
			t.Errorf("Classify(%q).Num = %v, want %v", tc.raw, got.Num, tc.wantNum)
		}
		if got.Field != tc.wantField {
			t.Errorf("Classify(%q).Field = %q, want %q", tc.raw, got.Field, tc.wantField)
		}
	}
}

func TestClassifyPageFieldOverridesUnit(t *testing.T) {
	page := &Page{ID: PageDiabetesGlucosePostMeal, ExpectedField: FieldGlucosePostMeal}
	got := Classify(page, "140 mg/dl")
	if got.Kind != KindNumeric || got.Field != FieldGlucosePostMeal {
		t.Errorf("Classify on measurement page = %+v, want field %s", got, FieldGlucosePostMeal)
	}
}

func TestClassifyFreeText(t *testing.T) {
	for _, raw := range []string{"¿qué puedo cenar hoy?", "necesito ayuda con mi medicamento", "95 unicornios"} {
		got := Classify(nil, raw)
		if got.Kind != KindFreeText {
			t.Errorf("Classify(%q).Kind = %s, want FREE_TEXT", raw, got.Kind)
		}
	}
}
