package explain

import "testing"

func TestExtractRanksByAbsoluteImpact(t *testing.T) {
	schema := []string{"age_at_last_encounter", "bmi_obese", "glucose_diabetic", "condition_diabetes", "vaccine_count", "fever", "hypothermia"}
	contributions := map[string]float64{
		"age_at_last_encounter": 0.30,
		"bmi_obese":             0.10,
		"glucose_diabetic":      -0.45,
		"condition_diabetes":    0.20,
		"vaccine_count":         -0.05,
		"fever":                 0.01,
		"hypothermia":           0.02,
	}

	factors := Extract(contributions, schema)
	if len(factors) != MaxFactors {
		t.Fatalf("expected %d factors, got %d", MaxFactors, len(factors))
	}
	if factors[0].Factor != "Diabetic Glucose Levels" {
		t.Fatalf("expected top factor to be the glucose contribution, got %q", factors[0].Factor)
	}
	if factors[0].Direction != "decreases" {
		t.Fatalf("expected negative impact to decrease risk, got %q", factors[0].Direction)
	}
	if factors[1].Factor != "Patient Age" || factors[1].Direction != "increases" {
		t.Fatalf("unexpected second factor %+v", factors[1])
	}

	for i := 1; i < len(factors); i++ {
		prev, curr := abs(factors[i-1].Impact), abs(factors[i].Impact)
		if curr > prev {
			t.Fatalf("factors not sorted by absolute impact: %v before %v", prev, curr)
		}
	}
}

func TestExtractTiesBreakOnSchemaOrder(t *testing.T) {
	schema := []string{"fever", "hypothermia"}
	contributions := map[string]float64{
		"hypothermia": 0.2,
		"fever":       -0.2,
	}

	factors := Extract(contributions, schema)
	if len(factors) != 2 {
		t.Fatalf("expected 2 factors, got %d", len(factors))
	}
	if factors[0].Factor != "Recent Fever" {
		t.Fatalf("expected schema order to break the tie, got %q first", factors[0].Factor)
	}
}

func TestExtractEmptyContributions(t *testing.T) {
	factors := Extract(nil, []string{"fever"})
	if factors == nil || len(factors) != 0 {
		t.Fatalf("expected empty slice, got %v", factors)
	}
}

func TestTranslateFallback(t *testing.T) {
	if got := Translate("some_new_feature"); got != "Some New Feature" {
		t.Fatalf("expected humanized fallback, got %q", got)
	}
	if got := Translate("total_care_duration_days"); got != "Length of Care Relationship" {
		t.Fatalf("expected clinical label, got %q", got)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
