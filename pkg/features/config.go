package features

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Thresholds holds the clinical cut-points used to derive binary indicator
// features. They ship with defaults matching standard clinical practice and
// can be overridden from a yaml file, so tuning a cut-point is a config
// change rather than a code change.
type Thresholds struct {
	GlucoseDiabetic       float64 `yaml:"glucose_diabetic" json:"glucose_diabetic"`
	GlucosePrediabeticMin float64 `yaml:"glucose_prediabetic_min" json:"glucose_prediabetic_min"`
	HbA1cDiabetic         float64 `yaml:"hba1c_diabetic" json:"hba1c_diabetic"`
	HbA1cPrediabeticMin   float64 `yaml:"hba1c_prediabetic_min" json:"hba1c_prediabetic_min"`
	CreatinineHigh        float64 `yaml:"creatinine_high" json:"creatinine_high"`
	CholesterolHigh       float64 `yaml:"cholesterol_high" json:"cholesterol_high"`
	BMIObese              float64 `yaml:"bmi_obese" json:"bmi_obese"`
	BMIUnderweight        float64 `yaml:"bmi_underweight" json:"bmi_underweight"`
	BMINormalMax          float64 `yaml:"bmi_normal_max" json:"bmi_normal_max"`
	Fever                 float64 `yaml:"fever" json:"fever"`
	Hypothermia           float64 `yaml:"hypothermia" json:"hypothermia"`
	SeniorAge             float64 `yaml:"senior_age" json:"senior_age"`
	ElderlyAge            float64 `yaml:"elderly_age" json:"elderly_age"`
	LongEncounterMinutes  float64 `yaml:"long_encounter_minutes" json:"long_encounter_minutes"`
	HighUtilizationPerYr  float64 `yaml:"high_utilization_per_year" json:"high_utilization_per_year"`
	ShortTermCareDays     float64 `yaml:"short_term_care_days" json:"short_term_care_days"`
	LongTermCareDays      float64 `yaml:"long_term_care_days" json:"long_term_care_days"`
	MultipleConditionsMin int     `yaml:"multiple_conditions_min" json:"multiple_conditions_min"`

	// Eligibility bounds
	MinCareDurationDays float64 `yaml:"min_care_duration_days" json:"min_care_duration_days"`
	MinAgeYears         float64 `yaml:"min_age_years" json:"min_age_years"`
	MaxAgeYears         float64 `yaml:"max_age_years" json:"max_age_years"`
}

func LoadThresholds(path string) (Thresholds, error) {
	if path == "" {
		return DefaultThresholds(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultThresholds(), err
	}
	cfg := DefaultThresholds()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Thresholds{}, err
	}
	return cfg, nil
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		GlucoseDiabetic:       126,
		GlucosePrediabeticMin: 100,
		HbA1cDiabetic:         6.5,
		HbA1cPrediabeticMin:   5.7,
		CreatinineHigh:        1.2,
		CholesterolHigh:       240,
		BMIObese:              30,
		BMIUnderweight:        18.5,
		BMINormalMax:          25,
		Fever:                 38.0,
		Hypothermia:           36.0,
		SeniorAge:             65,
		ElderlyAge:            80,
		LongEncounterMinutes:  60,
		HighUtilizationPerYr:  10,
		ShortTermCareDays:     90,
		LongTermCareDays:      365,
		MultipleConditionsMin: 3,
		MinCareDurationDays:   30,
		MinAgeYears:           0,
		MaxAgeYears:           120,
	}
}

// ConditionRule maps free-text condition labels onto a normalized category
// by substring keyword. Rules are evaluated in order and the first matching
// rule wins for a given label; labels matching no rule land in the "other"
// bucket untouched.
type ConditionRule struct {
	Category string   `yaml:"category" json:"category"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

type ConditionRulesConfig struct {
	Rules []ConditionRule `yaml:"rules" json:"rules"`
}

func LoadConditionRules(path string) (ConditionRulesConfig, error) {
	if path == "" {
		return DefaultConditionRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultConditionRules(), err
	}
	var cfg ConditionRulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return ConditionRulesConfig{}, err
	}
	if len(cfg.Rules) == 0 {
		return ConditionRulesConfig{}, errors.New("no condition rules configured")
	}
	return cfg, nil
}

func DefaultConditionRules() ConditionRulesConfig {
	return ConditionRulesConfig{Rules: []ConditionRule{
		{Category: "diabetes", Keywords: []string{"diabetes", "prediabetes"}},
		{Category: "hypertension", Keywords: []string{"hypertension", "high blood pressure"}},
		{Category: "heart_disease", Keywords: []string{"heart", "cardiac", "coronary", "myocardial", "angina"}},
		{Category: "kidney_disease", Keywords: []string{"kidney", "renal", "nephritis"}},
		{Category: "stroke", Keywords: []string{"stroke", "cerebrovascular", "tia"}},
		{Category: "copd", Keywords: []string{"copd", "pulmonary", "respiratory", "emphysema", "bronchitis", "asthma"}},
	}}
}
