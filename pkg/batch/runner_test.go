package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/chronicare-ai/platform/pkg/common/models"
	"github.com/chronicare-ai/platform/pkg/features"
	"github.com/chronicare-ai/platform/pkg/model"
	"github.com/chronicare-ai/platform/pkg/snapshot"
)

// stubScorer returns a fixed probability per patient age so tests control
// categorization without a model artifact on disk.
type stubScorer struct {
	probability  float64
	failInfo     bool
	failFeature  string
	attributions map[string]float64
	attributed   map[string]bool
}

func (s *stubScorer) Schema(ctx context.Context) ([]string, error) {
	return []string{"age_at_last_encounter", "bmi_obese", "glucose_diabetic"}, nil
}

func (s *stubScorer) Info(ctx context.Context) (model.Info, error) {
	if s.failInfo {
		return model.Info{}, model.ErrModelUnavailable
	}
	return model.Info{Name: "stub_lr", Algorithm: "logistic_regression", TestAUROC: 0.9}, nil
}

func (s *stubScorer) Score(ctx context.Context, v models.FeatureVector) (float64, error) {
	if s.failFeature != "" {
		if age, _ := v.Get("age_at_last_encounter"); fmt.Sprintf("%.0f", age) == s.failFeature {
			return 0, model.ErrModelUnavailable
		}
	}
	return s.probability, nil
}

func (s *stubScorer) Attribute(ctx context.Context, v models.FeatureVector) (map[string]float64, error) {
	if s.attributed != nil {
		age, _ := v.Get("age_at_last_encounter")
		s.attributed[fmt.Sprintf("%.0f", age)] = true
	}
	if s.attributions != nil {
		return s.attributions, nil
	}
	return map[string]float64{"bmi_obese": 0.4, "age_at_last_encounter": 0.2, "glucose_diabetic": -0.1}, nil
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	p.events = append(p.events, eventType)
	return nil
}

func rawRecord(id string, birthYear int) models.RawPatientRecord {
	bmi := 31.0
	glucose := 140.0
	return models.RawPatientRecord{
		PatientID:      id,
		Name:           "Patient " + id,
		BirthDate:      fmt.Sprintf("%d-01-01", birthYear),
		Gender:         "female",
		FirstEncounter: "2021-01-01",
		LastEncounter:  "2022-06-01",
		BMI:            &bmi,
		Glucose:        &glucose,
		Conditions:     []string{"Type 2 Diabetes Mellitus"},
		Outcome:        1,
	}
}

func testRunner(scorer model.Scorer, handle *snapshot.Handle, opts ...RunnerOption) *Runner {
	pipeline := features.NewPipeline(features.DefaultThresholds(), features.DefaultConditionRules())
	return NewRunner(pipeline, scorer, handle, 2, opts...)
}

func TestRunBuildsSnapshot(t *testing.T) {
	handle := snapshot.NewHandle()
	publisher := &recordingPublisher{}
	runner := testRunner(&stubScorer{probability: 0.6}, handle, WithPublisher(publisher))

	malformed := rawRecord("bad", 1950)
	malformed.BirthDate = "garbage"
	ineligible := rawRecord("young", 1950)
	ineligible.FirstEncounter = "2022-05-28"

	records := []models.RawPatientRecord{
		rawRecord("p2", 1950),
		rawRecord("p1", 1940),
		malformed,
		ineligible,
	}

	snap, version, err := runner.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if snap.Metadata.TotalPatients != 2 {
		t.Fatalf("expected 2 scored patients, got %d", snap.Metadata.TotalPatients)
	}
	if snap.Metadata.ExcludedMalformed != 1 || snap.Metadata.ExcludedIneligible != 1 {
		t.Fatalf("unexpected exclusion counts %+v", snap.Metadata)
	}
	if snap.Metadata.ModelName != "stub_lr" {
		t.Fatalf("expected model name in metadata, got %q", snap.Metadata.ModelName)
	}

	for _, p := range snap.Patients {
		if p.Level != "Critical Risk" || p.Priority != 4 || p.Color != "red" {
			t.Fatalf("expected critical categorization for p=0.6, got %+v", p.RiskAssessment)
		}
		if len(p.RiskFactors) == 0 {
			t.Fatalf("expected risk factors for %s", p.PatientID)
		}
		if p.Conditions.Diabetes != 1 {
			t.Fatalf("expected condition summary on served record, got %+v", p.Conditions)
		}
	}
	// Equal risk sorts by patient id.
	if snap.Patients[0].PatientID != "p1" || snap.Patients[1].PatientID != "p2" {
		t.Fatalf("unexpected patient order: %s, %s", snap.Patients[0].PatientID, snap.Patients[1].PatientID)
	}

	if version != 1 {
		t.Fatalf("expected run to report version 1, got %d", version)
	}
	if _, installed, ok := handle.Current(); !ok || installed != version {
		t.Fatalf("expected reported version to match the handle, ok=%v handle=%d run=%d", ok, installed, version)
	}
	if len(publisher.events) != 1 || publisher.events[0] != EventSnapshotPublished {
		t.Fatalf("expected one %s event, got %v", EventSnapshotPublished, publisher.events)
	}
}

func TestRunDeterministic(t *testing.T) {
	records := []models.RawPatientRecord{
		rawRecord("c", 1940),
		rawRecord("a", 1950),
		rawRecord("b", 1960),
	}

	first, _, err := testRunner(&stubScorer{probability: 0.3}, snapshot.NewHandle()).Run(context.Background(), records)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	second, _, err := testRunner(&stubScorer{probability: 0.3}, snapshot.NewHandle()).Run(context.Background(), records)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(first.Patients) != len(second.Patients) {
		t.Fatalf("patient counts differ: %d vs %d", len(first.Patients), len(second.Patients))
	}
	for i := range first.Patients {
		if first.Patients[i].PatientID != second.Patients[i].PatientID {
			t.Fatalf("order differs at %d: %s vs %s", i, first.Patients[i].PatientID, second.Patients[i].PatientID)
		}
		if first.Patients[i].Probability != second.Patients[i].Probability {
			t.Fatalf("probability differs for %s", first.Patients[i].PatientID)
		}
	}
}

func TestRunModelUnavailableAborts(t *testing.T) {
	handle := snapshot.NewHandle()
	previous := &models.Snapshot{Metadata: models.SnapshotMetadata{TotalPatients: 7}}
	handle.Install(previous)

	runner := testRunner(&stubScorer{failInfo: true}, handle)
	_, _, err := runner.Run(context.Background(), []models.RawPatientRecord{rawRecord("p1", 1950)})
	if !errors.Is(err, model.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}

	current, version, ok := handle.Current()
	if !ok || version != 1 || current.Metadata.TotalPatients != 7 {
		t.Fatal("expected previous snapshot to keep serving after aborted run")
	}
}

func TestRunIsolatesScoringFailures(t *testing.T) {
	// The patient born 1940 scores with age 82; fail exactly that one.
	runner := testRunner(&stubScorer{probability: 0.2, failFeature: "82"}, snapshot.NewHandle())

	snap, _, err := runner.Run(context.Background(), []models.RawPatientRecord{
		rawRecord("p1", 1940),
		rawRecord("p2", 1950),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if snap.Metadata.ScoringFailures != 1 {
		t.Fatalf("expected 1 scoring failure, got %d", snap.Metadata.ScoringFailures)
	}
	if snap.Metadata.TotalPatients != 1 || snap.Patients[0].PatientID != "p2" {
		t.Fatalf("expected only p2 served, got %+v", snap.Patients)
	}
}

func TestRunExplainSampleCap(t *testing.T) {
	attributed := map[string]bool{}
	scorer := &stubScorer{probability: 0.4, attributed: attributed}
	runner := testRunner(scorer, snapshot.NewHandle(), WithExplainSample(1))

	snap, _, err := runner.Run(context.Background(), []models.RawPatientRecord{
		rawRecord("p1", 1940),
		rawRecord("p2", 1950),
		rawRecord("p3", 1960),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(attributed) != 1 {
		t.Fatalf("expected exactly 1 record attributed, got %d", len(attributed))
	}
	explained := 0
	for _, p := range snap.Patients {
		if len(p.RiskFactors) > 0 {
			explained++
		}
	}
	if explained != 1 {
		t.Fatalf("expected 1 explained patient, got %d", explained)
	}
}
