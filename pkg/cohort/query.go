package cohort

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chronicare-ai/platform/pkg/common/models"
	"github.com/chronicare-ai/platform/pkg/snapshot"
)

var (
	// ErrDataUnavailable means no computed snapshot has been loaded yet.
	// Read operations fail fast with it instead of serving partial data.
	ErrDataUnavailable = errors.New("no computed snapshot loaded")
	// ErrPatientNotFound is returned by detail lookup on an unknown id.
	ErrPatientNotFound = errors.New("patient not found")
)

const (
	DefaultLimit   = 100
	alertViewLimit = 20
)

// QueryService serves read-only views over the active snapshot. It is
// stateless per request: every call resolves the version current at request
// time from the handle, so concurrent reads need no locking here.
type QueryService struct {
	handle *snapshot.Handle
}

func NewQueryService(handle *snapshot.Handle) *QueryService {
	return &QueryService{handle: handle}
}

// List filters, sorts and paginates the cohort. Predicates are conjunctive;
// absent predicates impose no constraint. The result is always ordered by
// descending risk percentage before the offset/limit slice is taken, and an
// inverted range (min > max) yields an empty page rather than an error.
func (s *QueryService) List(filter models.PatientFilter, offset, limit int) (models.PatientPage, error) {
	snap, _, ok := s.handle.Current()
	if !ok {
		return models.PatientPage{}, ErrDataUnavailable
	}

	matched := make([]models.PatientRecord, 0, len(snap.Patients))
	for _, p := range snap.Patients {
		if matches(p, filter) {
			matched = append(matched, p)
		}
	}
	sortByRiskDesc(matched)

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	page := []models.PatientRecord{}
	if offset < len(matched) {
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		page = matched[offset:end]
	}

	return models.PatientPage{
		Patients:       page,
		TotalCount:     len(matched),
		ReturnedCount:  len(page),
		Offset:         offset,
		Limit:          limit,
		FiltersApplied: filter,
	}, nil
}

// Detail returns one patient plus presentation-only derived fields: a short
// synthetic risk-trend series ending at the current percentage and a
// recommendation list selected by fixed percentage bands. Both are
// illustrative dashboard fields, not model output.
func (s *QueryService) Detail(patientID string) (models.PatientDetail, uint64, error) {
	snap, version, ok := s.handle.Current()
	if !ok {
		return models.PatientDetail{}, 0, ErrDataUnavailable
	}
	for _, p := range snap.Patients {
		if p.PatientID == patientID {
			return models.PatientDetail{
				PatientRecord:   p,
				RiskTrend:       syntheticTrend(p.Percentage, snap.Metadata),
				Recommendations: recommendationsFor(p.Percentage),
			}, version, nil
		}
	}
	return models.PatientDetail{}, 0, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
}

// Alerts returns the patients needing attention: priority >= 3, sorted by
// descending risk, capped at the top 20.
func (s *QueryService) Alerts() (models.AlertsView, error) {
	snap, _, ok := s.handle.Current()
	if !ok {
		return models.AlertsView{}, ErrDataUnavailable
	}

	view := models.AlertsView{Patients: []models.PatientRecord{}}
	for _, p := range snap.Patients {
		if p.Priority >= 3 {
			view.Patients = append(view.Patients, p)
			if p.Priority == 4 {
				view.CriticalCount++
			} else {
				view.HighCount++
			}
		}
	}
	view.AlertCount = len(view.Patients)
	sortByRiskDesc(view.Patients)
	if len(view.Patients) > alertViewLimit {
		view.Patients = view.Patients[:alertViewLimit]
	}
	return view, nil
}

func (s *QueryService) Summary() (models.SnapshotMetadata, models.CohortSummary, error) {
	snap, _, ok := s.handle.Current()
	if !ok {
		return models.SnapshotMetadata{}, models.CohortSummary{}, ErrDataUnavailable
	}
	return snap.Metadata, snap.Summary, nil
}

func (s *QueryService) Metadata() (models.SnapshotMetadata, error) {
	snap, _, ok := s.handle.Current()
	if !ok {
		return models.SnapshotMetadata{}, ErrDataUnavailable
	}
	return snap.Metadata, nil
}

func (s *QueryService) Distribution() (models.RiskDistributionView, error) {
	snap, _, ok := s.handle.Current()
	if !ok {
		return models.RiskDistributionView{}, ErrDataUnavailable
	}
	return models.RiskDistributionView{
		RiskDistribution: snap.Summary.RiskDistribution,
		AgeAnalysis:      snap.Summary.AgeAnalysis,
		TotalPatients:    len(snap.Patients),
	}, nil
}

func matches(p models.PatientRecord, f models.PatientFilter) bool {
	if f.RiskLevel != "" && p.Level != f.RiskLevel {
		return false
	}
	if f.MinRisk != nil && p.Percentage < *f.MinRisk {
		return false
	}
	if f.MaxRisk != nil && p.Percentage > *f.MaxRisk {
		return false
	}
	if f.AgeMin != nil && p.Age < *f.AgeMin {
		return false
	}
	if f.AgeMax != nil && p.Age > *f.AgeMax {
		return false
	}
	if f.Gender != "" && !strings.EqualFold(p.Gender, f.Gender) {
		return false
	}
	return true
}

// sortByRiskDesc orders by clinical priority: highest risk first, ties
// broken by patient id so pagination is stable across identical runs.
func sortByRiskDesc(patients []models.PatientRecord) {
	sort.Slice(patients, func(i, j int) bool {
		if patients[i].Percentage != patients[j].Percentage {
			return patients[i].Percentage > patients[j].Percentage
		}
		return patients[i].PatientID < patients[j].PatientID
	})
}

// syntheticTrend fabricates a short non-decreasing series ending at the
// current percentage, anchored to the snapshot generation date. Demo data
// for the dashboard chart; a real trend would need a stored score history.
func syntheticTrend(current float64, meta models.SnapshotMetadata) []models.TrendPoint {
	offsets := []struct {
		daysAgo int
		delta   float64
	}{
		{45, -5},
		{30, -3},
		{15, -1},
		{0, 0},
	}
	points := make([]models.TrendPoint, 0, len(offsets))
	for _, o := range offsets {
		risk := current + o.delta
		if risk < 0.05 {
			risk = 0.05
		}
		points = append(points, models.TrendPoint{
			Date: meta.GeneratedAt.AddDate(0, 0, -o.daysAgo).Format("2006-01-02"),
			Risk: risk,
		})
	}
	return points
}

func recommendationsFor(percentage float64) []string {
	switch {
	case percentage > 50:
		return []string{
			"Urgent: Schedule immediate clinical evaluation",
			"Consider hospitalization or intensive monitoring",
			"Review all medications and dosages",
		}
	case percentage > 25:
		return []string{
			"Schedule follow-up within 1-2 weeks",
			"Monitor vital signs closely",
			"Review chronic disease management plan",
		}
	case percentage > 10:
		return []string{
			"Routine follow-up in 1 month",
			"Continue current treatment plan",
			"Monitor for symptom changes",
		}
	default:
		return []string{
			"Continue routine care",
			"Annual wellness visit",
			"Maintain healthy lifestyle",
		}
	}
}
