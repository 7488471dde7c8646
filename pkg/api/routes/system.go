package routes

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chronicare-ai/platform/pkg/cohort"
	"github.com/chronicare-ai/platform/pkg/common/logger"
	"github.com/chronicare-ai/platform/pkg/observability/metrics"
)

// SystemHandler serves the informational and analytics endpoints plus
// health and prometheus scrapes.
type SystemHandler struct {
	service *cohort.QueryService
	version string
}

func NewSystemHandler(service *cohort.QueryService, version string) *SystemHandler {
	return &SystemHandler{service: service, version: version}
}

func (h *SystemHandler) Register(r *mux.Router) {
	r.HandleFunc("/", h.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/metadata", h.handleMetadata).Methods(http.MethodGet)
	r.HandleFunc("/summary", h.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/analytics/risk-distribution", h.handleDistribution).Methods(http.MethodGet)
}

func (h *SystemHandler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"message": "Chronic Care Risk Prediction API",
		"status":  "healthy",
		"version": h.version,
		"endpoints": []string{
			"/patients - Get all patients with optional filtering",
			"/patients/{patient_id} - Get individual patient details",
			"/patients/high-risk/alerts - Get high priority patient alerts",
			"/analytics/risk-distribution - Get risk distribution analytics",
			"/summary - Get cohort summary statistics",
			"/metadata - Get model and dataset metadata",
		},
	})
}

func (h *SystemHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "healthy"}
	if _, err := h.service.Metadata(); err != nil {
		status["status"] = "degraded"
		status["detail"] = "no snapshot loaded"
	}
	writeJSON(w, status)
}

func (h *SystemHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w)
}

func (h *SystemHandler) handleMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.Metadata()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, meta)
}

func (h *SystemHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	meta, summary, err := h.service.Summary()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"metadata": meta,
		"summary":  summary,
	})
}

func (h *SystemHandler) handleDistribution(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Distribution()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, view)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Error("failed to write json response")
	}
}
