package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/asakaida/tollgate/internal/services"
)

// SubscriptionHandler serves the subscription ledger endpoints.
type SubscriptionHandler struct {
	ledger services.LedgerServiceInterface
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(ledger services.LedgerServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{ledger: ledger}
}

type createSubscriptionRequest struct {
	UserID string `json:"user_id"`
	PlanID int64  `json:"plan_id"`
}

type updateSubscriptionRequest struct {
	PlanID int64 `json:"plan_id"`
}

// Create handles POST /subscriptions.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sub, err := h.ledger.Subscribe(r.Context(), req.UserID, req.PlanID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":         fmt.Sprintf("User %s subscribed to plan %d", sub.UserID, sub.PlanID),
		"subscription_id": sub.ID,
	})
}

// Update handles PUT /subscriptions/{user_id}. The usage count carries over
// to the new plan unchanged.
func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	var req updateSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sub, err := h.ledger.ReassignPlan(r.Context(), userID, req.PlanID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Subscription for user %s updated to plan %d", sub.UserID, sub.PlanID),
	})
}

// Get handles GET /subscriptions/{user_id}.
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	detail, err := h.ledger.GetSubscription(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":     detail.Subscription.UserID,
		"plan":        newPlanView(detail.Plan),
		"usage_count": detail.Subscription.UsageCount,
	})
}

// Usage handles GET /subscriptions/{user_id}/usage.
func (h *SubscriptionHandler) Usage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	report, err := h.ledger.GetUsage(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"usage_count": report.UsageCount,
		"usage_limit": report.UsageLimit,
		"remaining":   report.Remaining,
		"exceeded":    report.Exceeded,
	})
}
