package ehr

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/chronicare-ai/platform/pkg/common/models"
)

// RecordModel is the persisted form of one raw EHR extract row. The
// free-text condition labels and event timestamp collections are stored as
// JSON columns; everything clinical stays nullable the way the extract
// leaves it.
type RecordModel struct {
	PatientID string `gorm:"primaryKey;column:patient_id"`
	Name      string `gorm:"column:name"`

	BirthDate      string `gorm:"column:birthdate"`
	Gender         string `gorm:"column:gender"`
	FirstEncounter string `gorm:"column:first_encounter"`
	LastEncounter  string `gorm:"column:last_encounter"`

	BMI         *float64 `gorm:"column:bmi"`
	Weight      *float64 `gorm:"column:weight"`
	Height      *float64 `gorm:"column:height"`
	Temperature *float64 `gorm:"column:temperature"`

	Glucose     *float64 `gorm:"column:glucose"`
	HbA1c       *float64 `gorm:"column:hba1c"`
	Creatinine  *float64 `gorm:"column:creatinine"`
	Cholesterol *float64 `gorm:"column:cholesterol"`

	Conditions     datatypes.JSON `gorm:"column:conditions"`
	ProcedureDates datatypes.JSON `gorm:"column:procedure_dates"`
	VaccineDates   datatypes.JSON `gorm:"column:vaccine_dates"`

	AvgEncounterMinutes *float64 `gorm:"column:avg_encounter_duration_min"`

	Outcome int `gorm:"column:outcome"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (RecordModel) TableName() string {
	return "ehr_records"
}

func toDomain(row *RecordModel) models.RawPatientRecord {
	return models.RawPatientRecord{
		PatientID:           row.PatientID,
		Name:                row.Name,
		BirthDate:           row.BirthDate,
		Gender:              row.Gender,
		FirstEncounter:      row.FirstEncounter,
		LastEncounter:       row.LastEncounter,
		BMI:                 row.BMI,
		Weight:              row.Weight,
		Height:              row.Height,
		Temperature:         row.Temperature,
		Glucose:             row.Glucose,
		HbA1c:               row.HbA1c,
		Creatinine:          row.Creatinine,
		Cholesterol:         row.Cholesterol,
		Conditions:          decodeStrings(row.Conditions),
		ProcedureDates:      decodeStrings(row.ProcedureDates),
		VaccineDates:        decodeStrings(row.VaccineDates),
		AvgEncounterMinutes: row.AvgEncounterMinutes,
		Outcome:             row.Outcome,
	}
}

func toRow(rec models.RawPatientRecord) RecordModel {
	now := time.Now().UTC()
	return RecordModel{
		PatientID:           rec.PatientID,
		Name:                rec.Name,
		BirthDate:           rec.BirthDate,
		Gender:              rec.Gender,
		FirstEncounter:      rec.FirstEncounter,
		LastEncounter:       rec.LastEncounter,
		BMI:                 rec.BMI,
		Weight:              rec.Weight,
		Height:              rec.Height,
		Temperature:         rec.Temperature,
		Glucose:             rec.Glucose,
		HbA1c:               rec.HbA1c,
		Creatinine:          rec.Creatinine,
		Cholesterol:         rec.Cholesterol,
		Conditions:          encodeStrings(rec.Conditions),
		ProcedureDates:      encodeStrings(rec.ProcedureDates),
		VaccineDates:        encodeStrings(rec.VaccineDates),
		AvgEncounterMinutes: rec.AvgEncounterMinutes,
		Outcome:             rec.Outcome,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func decodeStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	return values
}

func encodeStrings(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(payload)
}
