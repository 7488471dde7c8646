package ehr

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chronicare-ai/platform/pkg/common/logger"
	"github.com/chronicare-ai/platform/pkg/common/models"
)

// Source abstracts where the raw extract comes from. The postgres
// repository and the CSV loader both satisfy it.
type Source interface {
	Load(ctx context.Context) ([]models.RawPatientRecord, error)
}

// CSVSource reads the cleaned EHR extract directly from disk. Column names
// follow the export: clinical measurements keep their source-system names,
// event collections are serialized arrays.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Load(ctx context.Context) ([]models.RawPatientRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open extract: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read extract header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	if _, ok := index["patient_id"]; !ok {
		return nil, fmt.Errorf("extract %s is missing the patient_id column", s.path)
	}

	var records []models.RawPatientRecord
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		cell := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec := models.RawPatientRecord{
			PatientID:           cell("patient_id"),
			Name:                cell("name"),
			BirthDate:           cell("birthdate"),
			Gender:              strings.ToLower(cell("gender")),
			FirstEncounter:      cell("first_encounter"),
			LastEncounter:       cell("last_encounter"),
			BMI:                 parseFloat(cell("Body_Mass_Index")),
			Weight:              parseFloat(cell("Body_Weight")),
			Height:              parseFloat(cell("Body_Height")),
			Temperature:         parseFloat(cell("Oral_temperature")),
			Glucose:             parseFloat(cell("Glucose")),
			HbA1c:               parseFloat(cell("Hemoglobin_A1c_Hemoglobin_total_in_Blood")),
			Creatinine:          parseFloat(cell("Creatinine")),
			Cholesterol:         parseFloat(cell("Total_Cholesterol")),
			Conditions:          parseList(cell("conditions")),
			ProcedureDates:      parseList(cell("procedure_dates")),
			VaccineDates:        parseList(cell("vaccine_dates")),
			AvgEncounterMinutes: parseFloat(cell("avg_encounter_duration_min")),
			Outcome:             parseInt(cell("mortality")),
		}
		if rec.PatientID == "" {
			skipped++
			continue
		}
		if rec.Name == "" {
			rec.Name = "Patient " + rec.PatientID
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"path":    s.path,
			"skipped": skipped,
			"loaded":  len(records),
		}).Warn("extract rows skipped during load")
	}
	return records, nil
}

func parseFloat(value string) *float64 {
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseInt(value string) int {
	if value == "" {
		return 0
	}
	// Outcome columns sometimes export as "1.0".
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// parseList accepts JSON arrays and the bracketed single-quoted form the
// source export uses. Anything unparsable yields an empty list, never an
// error.
func parseList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" || value == "[]" {
		return nil
	}
	if strings.HasPrefix(value, "[") {
		var parsed []string
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			return parsed
		}
		value = strings.TrimPrefix(value, "[")
		value = strings.TrimSuffix(value, "]")
	}
	parts := strings.Split(value, ",")
	var items []string
	for _, part := range parts {
		item := strings.Trim(strings.TrimSpace(part), `'"`)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
