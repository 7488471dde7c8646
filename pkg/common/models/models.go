package models

import (
	"time"
)

// Raw clinical source models
//
// RawPatientRecord is one row of the tabular EHR extract, keyed by patient
// identifier. Vitals and labs are pointers because the source leaves them
// blank for many patients; the feature pipeline decides how absence is
// handled. Records are immutable once loaded.
type RawPatientRecord struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`

	BirthDate      string `json:"birthdate"`
	Gender         string `json:"gender"`
	FirstEncounter string `json:"first_encounter"`
	LastEncounter  string `json:"last_encounter"`

	// Vitals
	BMI         *float64 `json:"bmi,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Labs
	Glucose     *float64 `json:"glucose,omitempty"`
	HbA1c       *float64 `json:"hba1c,omitempty"`
	Creatinine  *float64 `json:"creatinine,omitempty"`
	Cholesterol *float64 `json:"cholesterol,omitempty"`

	// Free-text condition labels, unnormalized
	Conditions []string `json:"conditions"`

	// Event timestamp collections (RFC 3339 or date-only strings)
	ProcedureDates []string `json:"procedure_dates"`
	VaccineDates   []string `json:"vaccine_dates"`

	AvgEncounterMinutes *float64 `json:"avg_encounter_duration_min,omitempty"`

	// Ground-truth outcome label for cohort evaluation
	Outcome int `json:"outcome"`
}

// FeatureVector is the fixed-schema numeric model input. Schema order and
// cardinality never change for the lifetime of one scoring pass; Values[i]
// corresponds to Schema[i].
type FeatureVector struct {
	Schema []string  `json:"schema"`
	Values []float64 `json:"values"`
}

func (v FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.Schema {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// RiskAssessment is the categorized model output for one patient.
type RiskAssessment struct {
	Probability float64 `json:"risk_probability"`
	Percentage  float64 `json:"risk_percentage"`
	Level       string  `json:"level"`
	Priority    int     `json:"priority"`
	Color       string  `json:"color"`
}

// RiskFactor is one ranked explanation entry: a clinical label, the signed
// contribution behind it, and the direction the sign implies.
type RiskFactor struct {
	Factor    string  `json:"factor"`
	Impact    float64 `json:"impact"`
	Direction string  `json:"direction"`
}

// ConditionSummary holds the normalized condition flags parsed out of the
// free-text condition list. Unmatched labels are preserved verbatim in
// OtherConditions so no raw condition string is ever dropped silently.
// TotalConditions counts the distinct matched categories plus distinct
// "other" entries, not the raw label count.
type ConditionSummary struct {
	Diabetes        int      `json:"diabetes"`
	Hypertension    int      `json:"hypertension"`
	HeartDisease    int      `json:"heart_disease"`
	KidneyDisease   int      `json:"kidney_disease"`
	Stroke          int      `json:"stroke"`
	COPD            int      `json:"copd"`
	OtherConditions []string `json:"other_conditions"`
	TotalConditions int      `json:"total_conditions"`
}

type PatientVitals struct {
	BMI         *float64 `json:"bmi"`
	Weight      *float64 `json:"weight"`
	Temperature *float64 `json:"temperature"`
}

type PatientLabs struct {
	Glucose     *float64 `json:"glucose"`
	HbA1c       *float64 `json:"hba1c"`
	Creatinine  *float64 `json:"creatinine"`
	Cholesterol *float64 `json:"cholesterol"`
}

// PatientRecord is the served unit: raw fields enriched with the risk
// assessment, explanation and condition summary. Computed once per batch
// pass; never recomputed on read.
type PatientRecord struct {
	PatientID     string `json:"patient_id"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	LastEncounter string `json:"last_encounter"`

	RiskAssessment

	Conditions ConditionSummary `json:"conditions"`
	Vitals     PatientVitals    `json:"vitals"`
	Labs       PatientLabs      `json:"labs"`

	CareDurationDays     int      `json:"care_duration_days"`
	ProcedureCount       int      `json:"procedure_count"`
	VaccineCount         int      `json:"vaccine_count"`
	AvgEncounterDuration *float64 `json:"avg_encounter_duration"`

	ActualOutcome int `json:"actual_outcome"`

	RiskFactors []RiskFactor `json:"risk_factors"`
}

// Cohort summary models
type RiskBucket struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type AgeBucket struct {
	Count   int     `json:"count"`
	AvgRisk float64 `json:"avg_risk"`
	MaxRisk float64 `json:"max_risk"`
}

type CohortSummary struct {
	RiskDistribution   map[string]RiskBucket `json:"risk_distribution"`
	HighRiskAlerts     int                   `json:"high_risk_alerts"`
	CriticalRiskAlerts int                   `json:"critical_risk_alerts"`
	AgeAnalysis        map[string]AgeBucket  `json:"age_analysis"`
}

// SnapshotMetadata describes one batch run. CohortAUROC/CohortAUPRC are
// computed over the same records the snapshot scores, so they read high
// relative to the held-out ModelAUROC carried from the training artifact;
// both are reported side by side for that reason.
type SnapshotMetadata struct {
	GeneratedAt        time.Time `json:"generated_at"`
	TotalPatients      int       `json:"total_patients"`
	ModelName          string    `json:"model_name"`
	ModelAUROC         float64   `json:"model_auroc"`
	CohortAUROC        float64   `json:"cohort_auroc"`
	CohortAUPRC        float64   `json:"cohort_auprc"`
	ExcludedMalformed  int       `json:"excluded_malformed"`
	ExcludedIneligible int       `json:"excluded_ineligible"`
	ScoringFailures    int       `json:"scoring_failures"`
}

// Snapshot is one atomically-swappable computed view of the cohort.
type Snapshot struct {
	Metadata SnapshotMetadata `json:"metadata"`
	Summary  CohortSummary    `json:"summary"`
	Patients []PatientRecord  `json:"patients"`
}

// Query service request/response models
type PatientFilter struct {
	RiskLevel string   `json:"risk_level,omitempty"`
	MinRisk   *float64 `json:"min_risk,omitempty"`
	MaxRisk   *float64 `json:"max_risk,omitempty"`
	AgeMin    *int     `json:"age_min,omitempty"`
	AgeMax    *int     `json:"age_max,omitempty"`
	Gender    string   `json:"gender,omitempty"`
}

type PatientPage struct {
	Patients       []PatientRecord `json:"patients"`
	TotalCount     int             `json:"total_count"`
	ReturnedCount  int             `json:"returned_count"`
	Offset         int             `json:"offset"`
	Limit          int             `json:"limit"`
	FiltersApplied PatientFilter   `json:"filters_applied"`
}

type TrendPoint struct {
	Date string  `json:"date"`
	Risk float64 `json:"risk"`
}

// PatientDetail adds presentation-only fields to a patient record. The
// trend series is synthetic demo data derived from the current percentage,
// not a stored historical score log.
type PatientDetail struct {
	PatientRecord
	RiskTrend       []TrendPoint `json:"risk_trend"`
	Recommendations []string     `json:"recommendations"`
}

type AlertsView struct {
	AlertCount    int             `json:"alert_count"`
	CriticalCount int             `json:"critical_count"`
	HighCount     int             `json:"high_count"`
	Patients      []PatientRecord `json:"patients"`
}

type RiskDistributionView struct {
	RiskDistribution map[string]RiskBucket `json:"risk_distribution"`
	AgeAnalysis      map[string]AgeBucket  `json:"age_analysis"`
	TotalPatients    int                   `json:"total_patients"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // snapshot.published, batch.failed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
