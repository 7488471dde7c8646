package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/chronicare-ai/platform/pkg/cohort"
	"github.com/chronicare-ai/platform/pkg/common/logger"
	"github.com/chronicare-ai/platform/pkg/common/models"
	"github.com/chronicare-ai/platform/pkg/snapshot"
)

// PatientsHandler serves the cohort dashboard views. All reads resolve
// against the snapshot active at request time; the handler never mutates.
type PatientsHandler struct {
	service *cohort.QueryService
	mirror  *snapshot.RedisMirror
}

func NewPatientsHandler(service *cohort.QueryService, mirror *snapshot.RedisMirror) *PatientsHandler {
	return &PatientsHandler{service: service, mirror: mirror}
}

func (h *PatientsHandler) Register(r *mux.Router) {
	r.HandleFunc("/patients", h.handleList).Methods(http.MethodGet)
	// Register before the {patient_id} route so "high-risk" does not match
	// as a patient id.
	r.HandleFunc("/patients/high-risk/alerts", h.handleAlerts).Methods(http.MethodGet)
	r.HandleFunc("/patients/{patient_id}", h.handleDetail).Methods(http.MethodGet)
}

func (h *PatientsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.PatientFilter{
		RiskLevel: query.Get("risk_level"),
		MinRisk:   queryFloat(query.Get("min_risk")),
		MaxRisk:   queryFloat(query.Get("max_risk")),
		AgeMin:    queryInt(query.Get("age_min")),
		AgeMax:    queryInt(query.Get("age_max")),
		Gender:    query.Get("gender"),
	}
	offset := intOrDefault(query.Get("offset"), 0)
	limit := intOrDefault(query.Get("limit"), cohort.DefaultLimit)

	page, err := h.service.List(filter, offset, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, page)
}

func (h *PatientsHandler) handleDetail(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patient_id"]

	detail, version, err := h.service.Detail(patientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	payload, err := json.Marshal(detail)
	if err != nil {
		logger.Log.WithError(err).Error("failed to encode patient detail")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	// Write-through cache so sibling services can fetch rendered details
	// without hitting the API. Keys are version-scoped; no invalidation.
	if h.mirror != nil {
		h.mirror.CacheDetail(r.Context(), version, patientID, payload)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (h *PatientsHandler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.Alerts()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, alerts)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cohort.ErrDataUnavailable):
		http.Error(w, "Dashboard data not available", http.StatusServiceUnavailable)
	case errors.Is(err, cohort.ErrPatientNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		logger.Log.WithError(err).Error("cohort query failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func queryFloat(value string) *float64 {
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

func queryInt(value string) *int {
	if value == "" {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &i
}

func intOrDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}
