package features

import (
	"strings"

	"github.com/chronicare-ai/platform/pkg/common/models"
)

// ParseConditions maps a free-text condition list through the ordered rule
// set into normalized condition flags. Every input label is accounted for:
// it either raises exactly one category flag or is preserved verbatim in the
// other bucket. TotalConditions counts distinct detected categories plus
// distinct other entries.
func ParseConditions(labels []string, rules ConditionRulesConfig) models.ConditionSummary {
	summary := models.ConditionSummary{OtherConditions: []string{}}

	detected := map[string]bool{}
	seenOther := map[string]bool{}

	for _, label := range labels {
		normalized := strings.ToLower(strings.TrimSpace(label))
		if normalized == "" {
			continue
		}

		category := matchCategory(normalized, rules)
		if category == "" {
			if !seenOther[normalized] {
				seenOther[normalized] = true
				summary.OtherConditions = append(summary.OtherConditions, normalized)
			}
			continue
		}

		detected[category] = true
		switch category {
		case "diabetes":
			summary.Diabetes = 1
		case "hypertension":
			summary.Hypertension = 1
		case "heart_disease":
			summary.HeartDisease = 1
		case "kidney_disease":
			summary.KidneyDisease = 1
		case "stroke":
			summary.Stroke = 1
		case "copd":
			summary.COPD = 1
		}
	}

	summary.TotalConditions = len(detected) + len(summary.OtherConditions)
	return summary
}

func matchCategory(label string, rules ConditionRulesConfig) string {
	for _, rule := range rules.Rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(label, keyword) {
				return rule.Category
			}
		}
	}
	return ""
}
