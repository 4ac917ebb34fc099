package handlers

import (
	"net/http"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/services"
)

// PlanHandler serves the plan catalog endpoints.
type PlanHandler struct {
	catalog services.CatalogServiceInterface
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(catalog services.CatalogServiceInterface) *PlanHandler {
	return &PlanHandler{catalog: catalog}
}

type createPlanRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"api_permissions"`
	UsageLimit  int      `json:"usage_limit"`
}

// updatePlanRequest carries a partial update. Absent fields stay nil and
// leave the plan unchanged; an explicit empty value overwrites. An empty
// api_permissions list clears the capability set.
type updatePlanRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Permissions []string `json:"api_permissions"`
	UsageLimit  *int     `json:"usage_limit"`
}

type planView struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"api_permissions"`
	UsageLimit  int      `json:"usage_limit"`
}

func newPlanView(plan *entities.Plan) planView {
	permissions := plan.Capabilities
	if permissions == nil {
		permissions = []string{}
	}
	return planView{
		ID:          plan.ID,
		Name:        plan.Name,
		Description: plan.Description,
		Permissions: permissions,
		UsageLimit:  plan.UsageLimit,
	}
}

// Create handles POST /plans.
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	plan, err := h.catalog.CreatePlan(r.Context(), &services.CreatePlanInput{
		Name:         req.Name,
		Description:  req.Description,
		Capabilities: req.Permissions,
		UsageLimit:   req.UsageLimit,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Plan created successfully",
		"plan_id": plan.ID,
	})
}

// List handles GET /plans.
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.catalog.ListPlans(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]planView, 0, len(plans))
	for _, plan := range plans {
		views = append(views, newPlanView(plan))
	}
	respondJSON(w, http.StatusOK, views)
}

// Get handles GET /plans/{id}.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	plan, err := h.catalog.GetPlan(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newPlanView(plan))
}

// Update handles PUT /plans/{id}.
func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var req updatePlanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	plan, err := h.catalog.UpdatePlan(r.Context(), id, &services.PlanPatch{
		Name:         req.Name,
		Description:  req.Description,
		Capabilities: req.Permissions,
		UsageLimit:   req.UsageLimit,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Plan updated successfully",
		"plan":    newPlanView(plan),
	})
}

// Delete handles DELETE /plans/{id}.
func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.catalog.DeletePlan(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Plan deleted successfully",
	})
}
