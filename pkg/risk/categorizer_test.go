package risk

import "testing"

func TestCategorizeBands(t *testing.T) {
	cases := []struct {
		probability float64
		level       string
		priority    int
		color       string
	}{
		{0.0, LevelLow, 1, "green"},
		{0.0999, LevelLow, 1, "green"},
		{0.10, LevelMedium, 2, "yellow"},
		{0.2499, LevelMedium, 2, "yellow"},
		{0.25, LevelHigh, 3, "orange"},
		{0.4999, LevelHigh, 3, "orange"},
		{0.50, LevelCritical, 4, "red"},
		{0.99, LevelCritical, 4, "red"},
		{1.0, LevelCritical, 4, "red"},
	}

	for _, tc := range cases {
		got := Categorize(tc.probability)
		if got.Level != tc.level {
			t.Fatalf("p=%v: expected level %q, got %q", tc.probability, tc.level, got.Level)
		}
		if got.Priority != tc.priority {
			t.Fatalf("p=%v: expected priority %d, got %d", tc.probability, tc.priority, got.Priority)
		}
		if got.Color != tc.color {
			t.Fatalf("p=%v: expected color %q, got %q", tc.probability, tc.color, got.Color)
		}
	}
}

func TestCategorizePercentageRounding(t *testing.T) {
	got := Categorize(0.14159)
	if got.Percentage != 14.2 {
		t.Fatalf("expected percentage 14.2, got %v", got.Percentage)
	}
	if got.Probability != 0.14159 {
		t.Fatalf("expected probability preserved, got %v", got.Probability)
	}
}
