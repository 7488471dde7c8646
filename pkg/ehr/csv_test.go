package ehr

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const extractSample = `patient_id,birthdate,gender,first_encounter,last_encounter,Body_Mass_Index,Glucose,conditions,procedure_dates,mortality
p1,1950-01-01,MALE,2021-01-01,2022-06-01,31.2,140,"['Type 2 Diabetes Mellitus', 'Essential Hypertension']","['2021-02-01', '2021-06-01']",1
p2,1960-05-10,female,2021-03-01,2022-01-01,,,"[]","[]",0
,1970-01-01,male,2021-01-01,2022-01-01,25,,"[]","[]",0
`

func TestCSVSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract.csv")
	if err := os.WriteFile(path, []byte(extractSample), 0o644); err != nil {
		t.Fatalf("failed to write extract: %v", err)
	}

	records, err := NewCSVSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (row without id skipped), got %d", len(records))
	}

	p1 := records[0]
	if p1.PatientID != "p1" {
		t.Fatalf("unexpected first record %+v", p1)
	}
	if p1.Gender != "male" {
		t.Fatalf("expected gender normalized to lowercase, got %q", p1.Gender)
	}
	if p1.BMI == nil || *p1.BMI != 31.2 {
		t.Fatalf("expected BMI 31.2, got %v", p1.BMI)
	}
	if len(p1.Conditions) != 2 || p1.Conditions[0] != "Type 2 Diabetes Mellitus" {
		t.Fatalf("expected parsed condition list, got %v", p1.Conditions)
	}
	if len(p1.ProcedureDates) != 2 {
		t.Fatalf("expected 2 procedure dates, got %v", p1.ProcedureDates)
	}
	if p1.Outcome != 1 {
		t.Fatalf("expected outcome 1, got %d", p1.Outcome)
	}
	if p1.Name != "Patient p1" {
		t.Fatalf("expected synthesized name, got %q", p1.Name)
	}

	p2 := records[1]
	if p2.BMI != nil || p2.Glucose != nil {
		t.Fatalf("expected blank measurements to stay nil, got %+v", p2)
	}
	if len(p2.Conditions) != 0 {
		t.Fatalf("expected empty condition list, got %v", p2.Conditions)
	}
}

func TestCSVSourceMissingIDColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract.csv")
	if err := os.WriteFile(path, []byte("birthdate,gender\n1950-01-01,male\n"), 0o644); err != nil {
		t.Fatalf("failed to write extract: %v", err)
	}

	if _, err := NewCSVSource(path).Load(context.Background()); err == nil {
		t.Fatal("expected error for extract without patient_id column")
	}
}
