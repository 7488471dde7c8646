package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/chronicare-ai/platform/pkg/cohort"
	"github.com/chronicare-ai/platform/pkg/common/logger"
	"github.com/chronicare-ai/platform/pkg/common/models"
	"github.com/chronicare-ai/platform/pkg/explain"
	"github.com/chronicare-ai/platform/pkg/features"
	"github.com/chronicare-ai/platform/pkg/model"
	"github.com/chronicare-ai/platform/pkg/risk"
	"github.com/chronicare-ai/platform/pkg/snapshot"
)

const EventSnapshotPublished = "snapshot.published"

// EventPublisher is what the runner needs from the event bus. The kafka
// producer satisfies it; tests pass a recorder.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Runner executes one full scoring pass: feature engineering, model scoring,
// categorization, explanation, cohort aggregation and the final snapshot
// swap. It is the single mutation point of the served view; everything else
// only reads.
type Runner struct {
	pipeline *features.Pipeline
	scorer   model.Scorer
	handle   *snapshot.Handle

	// Optional collaborators. The runner degrades gracefully when any of
	// them is nil: no persistence, no event, no mirror.
	store     *snapshot.FileStore
	repo      *Repository
	publisher EventPublisher
	mirror    *snapshot.RedisMirror

	workers       int
	explainSample int
}

type RunnerOption func(*Runner)

func WithStore(store *snapshot.FileStore) RunnerOption {
	return func(r *Runner) { r.store = store }
}

func WithRepository(repo *Repository) RunnerOption {
	return func(r *Runner) { r.repo = repo }
}

func WithPublisher(publisher EventPublisher) RunnerOption {
	return func(r *Runner) { r.publisher = publisher }
}

func WithMirror(mirror *snapshot.RedisMirror) RunnerOption {
	return func(r *Runner) { r.mirror = mirror }
}

// WithExplainSample caps attribution at the n highest-risk records. Zero
// means explain everyone.
func WithExplainSample(n int) RunnerOption {
	return func(r *Runner) { r.explainSample = n }
}

func NewRunner(pipeline *features.Pipeline, scorer model.Scorer, handle *snapshot.Handle, workers int, opts ...RunnerOption) *Runner {
	if workers <= 0 {
		workers = 1
	}
	r := &Runner{pipeline: pipeline, scorer: scorer, handle: handle, workers: workers}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type scoredRecord struct {
	raw        models.RawPatientRecord
	temporal   features.Temporal
	vector     models.FeatureVector
	conditions models.ConditionSummary
	assessment models.RiskAssessment
	factors    []models.RiskFactor
}

// Run scores the full record set, installs the resulting snapshot and
// returns it together with the version the handle assigned. A model-level
// failure (schema or metadata unavailable) aborts before any mutation,
// leaving the previous snapshot serving. Individual record failures are
// counted and excluded, never fatal.
func (r *Runner) Run(ctx context.Context, records []models.RawPatientRecord) (*models.Snapshot, uint64, error) {
	start := time.Now().UTC()
	runID := uuid.New()
	r.createRun(ctx, runID, len(records))

	info, err := r.scorer.Info(ctx)
	if err != nil {
		r.failRun(ctx, runID, err)
		return nil, 0, err
	}
	schema, err := r.scorer.Schema(ctx)
	if err != nil {
		r.failRun(ctx, runID, err)
		return nil, 0, err
	}

	// Temporal parse and eligibility screen, sequential and cheap. The
	// malformed and ineligible counts surface in snapshot metadata.
	malformed, ineligible := 0, 0
	eligible := make([]models.RawPatientRecord, 0, len(records))
	temporals := make([]features.Temporal, 0, len(records))
	for _, rec := range records {
		t, err := r.pipeline.Temporal(rec)
		if err != nil {
			malformed++
			logger.Log.WithError(err).WithField("patient_id", rec.PatientID).Debug("excluding malformed record")
			continue
		}
		if !r.pipeline.Eligible(t) {
			ineligible++
			continue
		}
		eligible = append(eligible, rec)
		temporals = append(temporals, t)
	}

	stats := features.ComputeBatchStats(eligible)

	// Engineer and score in parallel. Results land at their input index so
	// worker scheduling cannot affect ordering.
	results := make([]*scoredRecord, len(eligible))
	var failures int
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.workers)

	for i := range eligible {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			vector, conditions := r.pipeline.Engineer(eligible[i], temporals[i], stats, schema)
			prob, err := r.scorer.Score(ctx, vector)
			if err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
				logger.Log.WithError(err).WithField("patient_id", eligible[i].PatientID).Warn("scoring failed for record")
				return
			}
			results[i] = &scoredRecord{
				raw:        eligible[i],
				temporal:   temporals[i],
				vector:     vector,
				conditions: conditions,
				assessment: risk.Categorize(prob),
			}
		}(i)
	}
	wg.Wait()

	scored := make([]*scoredRecord, 0, len(results))
	for _, res := range results {
		if res != nil {
			scored = append(scored, res)
		}
	}

	r.attribute(ctx, scored, schema)

	patients := make([]models.PatientRecord, 0, len(scored))
	outcomes := make([]int, 0, len(scored))
	probabilities := make([]float64, 0, len(scored))
	for _, res := range scored {
		patients = append(patients, buildPatient(res))
		outcomes = append(outcomes, res.raw.Outcome)
		probabilities = append(probabilities, res.assessment.Probability)
	}
	sort.Slice(patients, func(i, j int) bool {
		if patients[i].Percentage != patients[j].Percentage {
			return patients[i].Percentage > patients[j].Percentage
		}
		return patients[i].PatientID < patients[j].PatientID
	})

	snap := &models.Snapshot{
		Metadata: models.SnapshotMetadata{
			GeneratedAt:        start,
			TotalPatients:      len(patients),
			ModelName:          info.Name,
			ModelAUROC:         info.TestAUROC,
			CohortAUROC:        AUROC(outcomes, probabilities),
			CohortAUPRC:        AUPRC(outcomes, probabilities),
			ExcludedMalformed:  malformed,
			ExcludedIneligible: ineligible,
			ScoringFailures:    failures,
		},
		Summary:  cohort.Summarize(patients),
		Patients: patients,
	}

	if r.store != nil {
		if err := r.store.Save(snap); err != nil {
			r.failRun(ctx, runID, err)
			return nil, 0, fmt.Errorf("snapshot persist failed: %w", err)
		}
	}

	version := r.handle.Install(snap)

	logger.Log.WithFields(map[string]interface{}{
		"run_id":           runID.String(),
		"snapshot_version": version,
		"total_patients":   len(patients),
		"malformed":        malformed,
		"ineligible":       ineligible,
		"scoring_failures": failures,
		"duration":         time.Since(start).String(),
	}).Info("Scoring batch completed")

	r.completeRun(ctx, runID, snap)
	r.announce(ctx, snap, version)

	return snap, version, nil
}

// attribute fills in the ranked risk factors. With a sample cap, only the n
// highest-risk records get explanations; ties break on patient id so the
// sampled set is stable run to run.
func (r *Runner) attribute(ctx context.Context, scored []*scoredRecord, schema []string) {
	targets := scored
	if r.explainSample > 0 && len(scored) > r.explainSample {
		ranked := append([]*scoredRecord(nil), scored...)
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].assessment.Percentage != ranked[j].assessment.Percentage {
				return ranked[i].assessment.Percentage > ranked[j].assessment.Percentage
			}
			return ranked[i].raw.PatientID < ranked[j].raw.PatientID
		})
		targets = ranked[:r.explainSample]
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.workers)
	for _, res := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(res *scoredRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			contributions, err := r.scorer.Attribute(ctx, res.vector)
			if err != nil {
				logger.Log.WithError(err).WithField("patient_id", res.raw.PatientID).Warn("attribution failed for record")
				return
			}
			res.factors = explain.Extract(contributions, schema)
		}(res)
	}
	wg.Wait()
}

func buildPatient(res *scoredRecord) models.PatientRecord {
	raw := res.raw
	factors := res.factors
	if factors == nil {
		factors = []models.RiskFactor{}
	}
	return models.PatientRecord{
		PatientID:      raw.PatientID,
		Name:           raw.Name,
		Age:            int(res.temporal.AgeYears),
		Gender:         raw.Gender,
		LastEncounter:  res.temporal.LastEncounter.Format("2006-01-02"),
		RiskAssessment: res.assessment,
		Conditions:     res.conditions,
		Vitals: models.PatientVitals{
			BMI:         raw.BMI,
			Weight:      raw.Weight,
			Temperature: raw.Temperature,
		},
		Labs: models.PatientLabs{
			Glucose:     raw.Glucose,
			HbA1c:       raw.HbA1c,
			Creatinine:  raw.Creatinine,
			Cholesterol: raw.Cholesterol,
		},
		CareDurationDays:     int(res.temporal.CareDurationDays),
		ProcedureCount:       features.CountEvents(raw.ProcedureDates),
		VaccineCount:         features.CountEvents(raw.VaccineDates),
		AvgEncounterDuration: raw.AvgEncounterMinutes,
		ActualOutcome:        raw.Outcome,
		RiskFactors:          factors,
	}
}

func (r *Runner) createRun(ctx context.Context, runID uuid.UUID, total int) {
	if r.repo == nil {
		return
	}
	now := time.Now().UTC()
	run := &RunModel{
		ID:           runID,
		Status:       StatusRunning,
		TotalRecords: total,
		Metrics:      datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
		StartedAt:    &now,
	}
	if err := r.repo.Create(ctx, run); err != nil {
		logger.Log.WithError(err).Error("failed to record scoring run")
	}
}

func (r *Runner) completeRun(ctx context.Context, runID uuid.UUID, snap *models.Snapshot) {
	if r.repo == nil {
		return
	}
	metrics := map[string]interface{}{
		"cohort_auroc":        snap.Metadata.CohortAUROC,
		"cohort_auprc":        snap.Metadata.CohortAUPRC,
		"excluded_malformed":  snap.Metadata.ExcludedMalformed,
		"excluded_ineligible": snap.Metadata.ExcludedIneligible,
		"scoring_failures":    snap.Metadata.ScoringFailures,
	}
	path := ""
	if r.store != nil {
		path = r.store.Path()
	}
	if err := r.repo.Complete(ctx, runID, snap.Metadata.TotalPatients, metrics, path); err != nil {
		logger.Log.WithError(err).Error("failed to mark scoring run complete")
	}
}

func (r *Runner) failRun(ctx context.Context, runID uuid.UUID, cause error) {
	logger.Log.WithError(cause).Error("Scoring batch aborted")
	if r.repo == nil {
		return
	}
	message := cause.Error()
	if errors.Is(cause, model.ErrModelUnavailable) {
		message = "model unavailable: " + message
	}
	if err := r.repo.Fail(ctx, runID, message); err != nil {
		logger.Log.WithError(err).Error("failed to mark scoring run failed")
	}
}

func (r *Runner) announce(ctx context.Context, snap *models.Snapshot, version uint64) {
	if r.mirror != nil {
		if err := r.mirror.PublishMetadata(ctx, snap.Metadata, version); err != nil {
			logger.Log.WithError(err).Warn("snapshot metadata mirror failed")
		}
	}
	if r.publisher == nil {
		return
	}
	data := map[string]interface{}{
		"snapshot_version": version,
		"total_patients":   snap.Metadata.TotalPatients,
		"generated_at":     snap.Metadata.GeneratedAt,
		"model_name":       snap.Metadata.ModelName,
	}
	if r.store != nil {
		data["snapshot_path"] = r.store.Path()
	}
	if err := r.publisher.PublishEvent(ctx, EventSnapshotPublished, "batch-runner", data); err != nil {
		logger.Log.WithError(err).Warn("snapshot event publish failed")
	}
}
