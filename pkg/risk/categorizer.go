package risk

import (
	"math"

	"github.com/chronicare-ai/platform/pkg/common/models"
)

// Category boundaries partition [0,1] with no gaps or overlaps: half-open
// on the low end, closed at 1.0.
const (
	MediumThreshold   = 0.10
	HighThreshold     = 0.25
	CriticalThreshold = 0.50
)

const (
	LevelLow      = "Low Risk"
	LevelMedium   = "Medium Risk"
	LevelHigh     = "High Risk"
	LevelCritical = "Critical Risk"
)

// Levels lists the categories in ascending severity order.
var Levels = []string{LevelLow, LevelMedium, LevelHigh, LevelCritical}

// Categorize maps a probability to its clinical risk tier. Total,
// deterministic and idempotent: the same probability always yields the same
// assessment.
func Categorize(probability float64) models.RiskAssessment {
	assessment := models.RiskAssessment{
		Probability: probability,
		Percentage:  round1(probability * 100),
	}
	switch {
	case probability < MediumThreshold:
		assessment.Level = LevelLow
		assessment.Priority = 1
		assessment.Color = "green"
	case probability < HighThreshold:
		assessment.Level = LevelMedium
		assessment.Priority = 2
		assessment.Color = "yellow"
	case probability < CriticalThreshold:
		assessment.Level = LevelHigh
		assessment.Priority = 3
		assessment.Color = "orange"
	default:
		assessment.Level = LevelCritical
		assessment.Priority = 4
		assessment.Color = "red"
	}
	return assessment
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
