package explain

import "strings"

// clinicalLabels translates internal feature identifiers into the language
// clinicians read on the dashboard. Identifiers missing from the table fall
// back to a humanized form of the identifier rather than failing.
var clinicalLabels = map[string]string{
	"total_care_duration_days":      "Length of Care Relationship",
	"age_at_last_encounter":         "Patient Age",
	"avg_encounter_duration_filled": "Average Appointment Duration",
	"condition_count":               "Number of Chronic Conditions",
	"bmi_filled":                    "Body Mass Index",
	"glucose_diabetic":              "Diabetic Glucose Levels",
	"hba1c_diabetic":                "Diabetic HbA1c Levels",
	"condition_diabetes":            "Diabetes Diagnosis",
	"condition_hypertension":        "Hypertension Diagnosis",
	"condition_heart_disease":       "Heart Disease Diagnosis",
	"condition_kidney_disease":      "Kidney Disease Diagnosis",
	"condition_stroke":              "Stroke History",
	"condition_copd":                "COPD Diagnosis",
	"procedure_count":               "Number of Medical Procedures",
	"multiple_conditions":           "Multiple Chronic Conditions",
	"creatinine_high":               "Elevated Creatinine Levels",
	"cholesterol_high":              "Elevated Total Cholesterol",
	"bmi_obese":                     "Obesity (BMI >=30)",
	"bmi_underweight":               "Underweight (BMI <18.5)",
	"high_utilization":              "High Healthcare Utilization",
	"long_term_care":                "Long-term Care Relationship",
	"age_group_senior":              "Senior Age Group (65+)",
	"age_group_elderly":             "Elderly Age Group (80+)",
	"fever":                         "Recent Fever",
	"hypothermia":                   "Recent Hypothermia",
}

// Translate returns the clinical label for a feature identifier.
func Translate(feature string) string {
	if label, ok := clinicalLabels[feature]; ok {
		return label
	}
	return humanize(feature)
}

func humanize(feature string) string {
	words := strings.Split(strings.ReplaceAll(feature, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
