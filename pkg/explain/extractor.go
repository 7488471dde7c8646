package explain

import (
	"math"
	"sort"

	"github.com/chronicare-ai/platform/pkg/common/models"
)

// MaxFactors caps how many explanation entries one record carries.
const MaxFactors = 5

// Extract ranks a record's attribution map and returns the top entries by
// descending absolute contribution, translated into clinical labels. Ties
// break on schema order so the output is deterministic. A nil or empty
// attribution yields an empty explanation, never a fabricated one.
func Extract(contributions map[string]float64, schema []string) []models.RiskFactor {
	if len(contributions) == 0 {
		return []models.RiskFactor{}
	}

	type ranked struct {
		feature     string
		impact      float64
		schemaIndex int
	}

	order := make(map[string]int, len(schema))
	for i, name := range schema {
		order[name] = i
	}

	entries := make([]ranked, 0, len(contributions))
	for feature, impact := range contributions {
		idx, ok := order[feature]
		if !ok {
			idx = len(schema)
		}
		entries = append(entries, ranked{feature: feature, impact: impact, schemaIndex: idx})
	}

	sort.Slice(entries, func(i, j int) bool {
		ai, aj := math.Abs(entries[i].impact), math.Abs(entries[j].impact)
		if ai != aj {
			return ai > aj
		}
		return entries[i].schemaIndex < entries[j].schemaIndex
	})

	if len(entries) > MaxFactors {
		entries = entries[:MaxFactors]
	}

	factors := make([]models.RiskFactor, 0, len(entries))
	for _, e := range entries {
		direction := "decreases"
		if e.impact > 0 {
			direction = "increases"
		}
		factors = append(factors, models.RiskFactor{
			Factor:    Translate(e.feature),
			Impact:    e.impact,
			Direction: direction,
		})
	}
	return factors
}
