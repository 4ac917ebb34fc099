package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/asakaida/tollgate/internal/infrastructure/metrics"
	"github.com/asakaida/tollgate/internal/services/access"
)

const checkOutcomeGranted = "granted"

// AccessHandler serves the access check endpoint.
type AccessHandler struct {
	evaluator access.EvaluatorInterface
	collector *metrics.Collector          // optional
	exporter  *metrics.PrometheusExporter // optional
}

// NewAccessHandler creates a new AccessHandler. collector and exporter may
// be nil when metrics are disabled.
func NewAccessHandler(evaluator access.EvaluatorInterface, collector *metrics.Collector, exporter *metrics.PrometheusExporter) *AccessHandler {
	return &AccessHandler{
		evaluator: evaluator,
		collector: collector,
		exporter:  exporter,
	}
}

// Check handles GET /access/{user_id}/{api_request}. A denial is a 403 with
// a reason-specific message; a missing subscription is a 404.
func (h *AccessHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	capability := chi.URLParam(r, "api_request")

	result, err := h.evaluator.Check(r.Context(), userID, capability)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if !result.Allowed {
		h.recordOutcome(string(result.Reason))
		switch result.Reason {
		case access.ReasonCapabilityDenied:
			respondError(w, http.StatusForbidden, "Access denied: API not allowed in plan.")
		case access.ReasonQuotaExceeded:
			respondError(w, http.StatusForbidden, "Access denied: Usage limit exceeded.")
		default:
			respondError(w, http.StatusForbidden, "Access denied.")
		}
		return
	}

	h.recordOutcome(checkOutcomeGranted)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Access granted",
		"usage_count": result.UsageCount,
		"usage_limit": result.UsageLimit,
	})
}

func (h *AccessHandler) recordOutcome(outcome string) {
	if h.collector != nil {
		h.collector.RecordCheckOutcome(outcome)
	}
	if h.exporter != nil {
		h.exporter.RecordCheckOutcome(outcome)
	}
}
