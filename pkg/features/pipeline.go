package features

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/chronicare-ai/platform/pkg/common/models"
)

var ErrMalformedRecord = errors.New("malformed patient record")

const daysPerYear = 365.25

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Pipeline derives one FeatureVector per raw record. It is a pure function
// of the record, the precomputed batch statistics and the configured
// thresholds: re-running any single record with the same inputs yields the
// same vector.
type Pipeline struct {
	thresholds Thresholds
	rules      ConditionRulesConfig
}

func NewPipeline(thresholds Thresholds, rules ConditionRulesConfig) *Pipeline {
	return &Pipeline{thresholds: thresholds, rules: rules}
}

func (p *Pipeline) Thresholds() Thresholds {
	return p.thresholds
}

func (p *Pipeline) Rules() ConditionRulesConfig {
	return p.rules
}

// Temporal holds the normalized temporal fields of one record.
type Temporal struct {
	AgeYears         float64
	CareDurationDays float64
	LastEncounter    time.Time
}

// Temporal parses the record's date fields. A record whose birthdate or
// encounter range cannot be parsed fails closed with ErrMalformedRecord and
// is excluded from the batch rather than zero-filled.
func (p *Pipeline) Temporal(rec models.RawPatientRecord) (Temporal, error) {
	birth, err := parseDate(rec.BirthDate)
	if err != nil {
		return Temporal{}, fmt.Errorf("%w: birthdate %q", ErrMalformedRecord, rec.BirthDate)
	}
	first, err := parseDate(rec.FirstEncounter)
	if err != nil {
		return Temporal{}, fmt.Errorf("%w: first_encounter %q", ErrMalformedRecord, rec.FirstEncounter)
	}
	last, err := parseDate(rec.LastEncounter)
	if err != nil {
		return Temporal{}, fmt.Errorf("%w: last_encounter %q", ErrMalformedRecord, rec.LastEncounter)
	}

	return Temporal{
		AgeYears:         last.Sub(birth).Hours() / 24 / daysPerYear,
		CareDurationDays: last.Sub(first).Hours() / 24,
		LastEncounter:    last,
	}, nil
}

// Eligible reports whether a record carries enough plausible history to be
// scored. Ineligible records are dropped from the batch, not zero-filled.
func (p *Pipeline) Eligible(t Temporal) bool {
	if t.CareDurationDays < p.thresholds.MinCareDurationDays {
		return false
	}
	return t.AgeYears > p.thresholds.MinAgeYears && t.AgeYears < p.thresholds.MaxAgeYears
}

// BatchStats carries the fill statistics computed once over the eligible
// batch before dispatch. Workers treat it as read-only.
type BatchStats struct {
	Medians map[string]float64
}

// ComputeBatchStats computes per-field medians over the observed (non-nil)
// values of the batch. Fields with no observed values get no median entry
// and fall back to zero-fill downstream.
func ComputeBatchStats(records []models.RawPatientRecord) BatchStats {
	observed := map[string][]float64{}
	collect := func(name string, v *float64) {
		if v != nil {
			observed[name] = append(observed[name], *v)
		}
	}
	for _, rec := range records {
		collect("bmi", rec.BMI)
		collect("weight", rec.Weight)
		collect("height", rec.Height)
		collect("temperature", rec.Temperature)
		collect("glucose", rec.Glucose)
		collect("hba1c", rec.HbA1c)
		collect("creatinine", rec.Creatinine)
		collect("cholesterol", rec.Cholesterol)
		collect("avg_encounter_duration", rec.AvgEncounterMinutes)
	}

	medians := make(map[string]float64, len(observed))
	for name, values := range observed {
		medians[name] = median(values)
	}
	return BatchStats{Medians: medians}
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Engineer derives the full engineered feature map for one eligible record
// and projects it onto the target schema. Schema features the engineering
// step never produced are set to 0: the scoring adapter always receives a
// complete vector. The returned condition summary is reused verbatim on the
// served record.
func (p *Pipeline) Engineer(rec models.RawPatientRecord, t Temporal, stats BatchStats, schema []string) (models.FeatureVector, models.ConditionSummary) {
	th := p.thresholds
	f := map[string]float64{}

	// Demographics
	f["age_at_last_encounter"] = t.AgeYears
	f["gender_male"] = boolFeature(rec.Gender == "male")
	f["age_group_senior"] = boolFeature(t.AgeYears >= th.SeniorAge)
	f["age_group_elderly"] = boolFeature(t.AgeYears >= th.ElderlyAge)

	// Vitals. Indicators are derived from the filled value, matching how
	// the model was trained.
	bmi, _ := fill(rec.BMI, stats, "bmi")
	f["bmi_filled"] = bmi
	f["bmi_obese"] = boolFeature(bmi >= th.BMIObese)
	f["bmi_underweight"] = boolFeature(bmi < th.BMIUnderweight)
	f["bmi_normal"] = boolFeature(bmi >= th.BMIUnderweight && bmi < th.BMINormalMax)

	weight, _ := fill(rec.Weight, stats, "weight")
	f["weight_filled"] = weight
	height, _ := fill(rec.Height, stats, "height")
	f["height_filled"] = height

	temperature, _ := fill(rec.Temperature, stats, "temperature")
	f["temperature_filled"] = temperature
	f["fever"] = boolFeature(temperature > th.Fever)
	f["hypothermia"] = boolFeature(temperature < th.Hypothermia)

	// Labs
	glucose, _ := fill(rec.Glucose, stats, "glucose")
	f["glucose_filled"] = glucose
	f["glucose_diabetic"] = boolFeature(glucose >= th.GlucoseDiabetic)
	f["glucose_prediabetic"] = boolFeature(glucose >= th.GlucosePrediabeticMin && glucose < th.GlucoseDiabetic)

	hba1c, _ := fill(rec.HbA1c, stats, "hba1c")
	f["hba1c_filled"] = hba1c
	f["hba1c_diabetic"] = boolFeature(hba1c >= th.HbA1cDiabetic)
	f["hba1c_prediabetic"] = boolFeature(hba1c >= th.HbA1cPrediabeticMin && hba1c < th.HbA1cDiabetic)

	creatinine, _ := fill(rec.Creatinine, stats, "creatinine")
	f["creatinine_filled"] = creatinine
	f["creatinine_high"] = boolFeature(creatinine > th.CreatinineHigh)

	cholesterol, _ := fill(rec.Cholesterol, stats, "cholesterol")
	f["cholesterol_filled"] = cholesterol
	f["cholesterol_high"] = boolFeature(cholesterol >= th.CholesterolHigh)

	// Conditions
	conditions := ParseConditions(rec.Conditions, p.rules)
	f["condition_diabetes"] = float64(conditions.Diabetes)
	f["condition_hypertension"] = float64(conditions.Hypertension)
	f["condition_heart_disease"] = float64(conditions.HeartDisease)
	f["condition_kidney_disease"] = float64(conditions.KidneyDisease)
	f["condition_stroke"] = float64(conditions.Stroke)
	f["condition_copd"] = float64(conditions.COPD)
	f["condition_count"] = float64(conditions.TotalConditions)
	f["multiple_conditions"] = boolFeature(conditions.TotalConditions >= th.MultipleConditionsMin)

	// Utilization. Rates are normalized by care-duration in years with a
	// one-day floor guarding the division.
	procedureCount := CountEvents(rec.ProcedureDates)
	vaccineCount := CountEvents(rec.VaccineDates)
	careYears := math.Max(t.CareDurationDays, 1) / daysPerYear
	f["procedure_count"] = float64(procedureCount)
	f["vaccine_count"] = float64(vaccineCount)
	f["procedures_per_year"] = float64(procedureCount) / careYears
	f["high_utilization"] = boolFeature(f["procedures_per_year"] > th.HighUtilizationPerYr)

	encounterDuration, _ := fill(rec.AvgEncounterMinutes, stats, "avg_encounter_duration")
	f["avg_encounter_duration_filled"] = encounterDuration
	f["long_encounters"] = boolFeature(encounterDuration > th.LongEncounterMinutes)

	// Temporal patterns
	f["total_care_duration_days"] = t.CareDurationDays
	f["short_term_care"] = boolFeature(t.CareDurationDays <= th.ShortTermCareDays)
	f["medium_term_care"] = boolFeature(t.CareDurationDays > th.ShortTermCareDays && t.CareDurationDays <= th.LongTermCareDays)
	f["long_term_care"] = boolFeature(t.CareDurationDays > th.LongTermCareDays)

	return Project(f, schema), conditions
}

// Project retains only schema features, in schema order; schema features the
// engineered map lacks become 0 rather than an error.
func Project(engineered map[string]float64, schema []string) models.FeatureVector {
	values := make([]float64, len(schema))
	for i, name := range schema {
		values[i] = engineered[name]
	}
	return models.FeatureVector{Schema: schema, Values: values}
}

// CountEvents counts the parsable timestamps in an event collection.
// Unparsable entries are skipped rather than failing the record.
func CountEvents(dates []string) int {
	count := 0
	for _, d := range dates {
		if _, err := parseDate(d); err == nil {
			count++
		}
	}
	return count
}

func fill(v *float64, stats BatchStats, name string) (float64, bool) {
	if v != nil {
		return *v, true
	}
	if m, ok := stats.Medians[name]; ok {
		return m, false
	}
	return 0, false
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", value)
}
