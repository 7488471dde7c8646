package cohort

import (
	"math"

	"github.com/chronicare-ai/platform/pkg/common/models"
	"github.com/chronicare-ai/platform/pkg/risk"
)

// AgeBuckets are the fixed cohort age bands, in display order.
var AgeBuckets = []string{"18-35", "36-50", "51-65", "66-80", "80+"}

// Summarize computes the cohort summary over the full enriched record set.
// It is O(n) and recomputed from scratch whenever the set changes; there is
// no incremental path because the set is immutable between batch runs.
// Empty age buckets report explicit zeros instead of being omitted.
func Summarize(patients []models.PatientRecord) models.CohortSummary {
	summary := models.CohortSummary{
		RiskDistribution: make(map[string]models.RiskBucket, len(risk.Levels)),
		AgeAnalysis:      make(map[string]models.AgeBucket, len(AgeBuckets)),
	}

	total := len(patients)
	levelCounts := map[string]int{}
	ageRisks := map[string][]float64{}

	for _, p := range patients {
		levelCounts[p.Level]++
		if p.Priority >= 3 {
			summary.HighRiskAlerts++
		}
		if p.Priority == 4 {
			summary.CriticalRiskAlerts++
		}
		bucket := ageBucketFor(p.Age)
		ageRisks[bucket] = append(ageRisks[bucket], p.Percentage)
	}

	for _, level := range risk.Levels {
		count := levelCounts[level]
		percentage := 0.0
		if total > 0 {
			percentage = round1(float64(count) / float64(total) * 100)
		}
		summary.RiskDistribution[level] = models.RiskBucket{Count: count, Percentage: percentage}
	}

	for _, bucket := range AgeBuckets {
		risks := ageRisks[bucket]
		if len(risks) == 0 {
			summary.AgeAnalysis[bucket] = models.AgeBucket{}
			continue
		}
		sum, max := 0.0, 0.0
		for _, r := range risks {
			sum += r
			if r > max {
				max = r
			}
		}
		summary.AgeAnalysis[bucket] = models.AgeBucket{
			Count:   len(risks),
			AvgRisk: round1(sum / float64(len(risks))),
			MaxRisk: round1(max),
		}
	}

	return summary
}

func ageBucketFor(age int) string {
	switch {
	case age <= 35:
		return "18-35"
	case age <= 50:
		return "36-50"
	case age <= 65:
		return "51-65"
	case age <= 80:
		return "66-80"
	default:
		return "80+"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
