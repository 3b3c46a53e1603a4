package engine

import "testing"

func TestScanGlucoseThresholds(t *testing.T) {
	d := NewEmergencyDetector()

	cases := []struct {
		name  string
		value float64
		field string
		want  bool
	}{
		{"severe hypo", 55, FieldGlucoseFasting, true},
		{"boundary hypo", 69.9, FieldGlucoseFasting, true},
		{"low normal", 70, FieldGlucoseFasting, false},
		{"normal", 95, FieldGlucoseFasting, false},
		{"high but not critical", 250, FieldGlucosePostMeal, false},
		{"boundary high", 300, FieldGlucoseFasting, false},
		{"severe hyper", 300.1, FieldGlucoseFasting, true},
		{"extreme hyper", 650, FieldGlucoseFasting, true},
		{"bare number hyper", 650, "", true},
		{"bare number normal", 95, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := ClassifiedInput{Kind: KindNumeric, Num: tc.value, Field: tc.field}
			rule := d.Scan(input, "")
			if (rule != nil) != tc.want {
				t.Errorf("Scan(%v, field=%q) match = %v, want %v", tc.value, tc.field, rule != nil, tc.want)
			}
			if rule != nil && rule.Target != PageSharedEmergency {
				t.Errorf("rule target = %s, want %s", rule.Target, PageSharedEmergency)
			}
		})
	}
}

func TestScanIgnoresNonGlucoseFields(t *testing.T) {
	d := NewEmergencyDetector()

	// A weight of 65 kg must not trip the hypoglycemia rule.
	input := ClassifiedInput{Kind: KindNumeric, Num: 65, Field: FieldWeight}
	if rule := d.Scan(input, "65"); rule != nil {
		t.Errorf("weight reading matched emergency rule %q", rule.Label)
	}

	input = ClassifiedInput{Kind: KindNumeric, Num: 400, Field: FieldHip}
	if rule := d.Scan(input, "400"); rule != nil {
		t.Errorf("hip reading matched emergency rule %q", rule.Label)
	}
}

func TestScanKeywords(t *testing.T) {
	d := NewEmergencyDetector()

	cases := []struct {
		raw  string
		want bool
	}{
		{"tengo dolor en el pecho desde hace una hora", true},
		{"no puedo respirar bien", true},
		{"me quiero morir", true},
		{"me desmayé esta mañana", true},
		{"quiero agendar una cita", false},
		{"hola", false},
	}
	for _, tc := range cases {
		input := ClassifiedInput{Kind: KindFreeText, Value: tc.raw}
		rule := d.Scan(input, tc.raw)
		if (rule != nil) != tc.want {
			t.Errorf("Scan(%q) match = %v, want %v", tc.raw, rule != nil, tc.want)
		}
	}
}

func TestScanNumericBeforeKeyword(t *testing.T) {
	d := NewEmergencyDetector()

	// A numeric emergency wins even when the text also carries a keyword.
	input := ClassifiedInput{Kind: KindNumeric, Num: 45, Field: FieldGlucoseFasting}
	rule := d.Scan(input, "45 y me duele el pecho")
	if rule == nil {
		t.Fatal("expected a rule match")
	}
	if rule.Field != "glucose" {
		t.Errorf("matched rule %q, want the numeric glucose rule", rule.Label)
	}
}
