package handlers

import (
	"net/http"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/services"
)

// PermissionHandler serves the permission registry endpoints. Registry
// entries are administrative vocabulary only; access checks never read them.
type PermissionHandler struct {
	registry services.RegistryServiceInterface
}

// NewPermissionHandler creates a new PermissionHandler.
func NewPermissionHandler(registry services.RegistryServiceInterface) *PermissionHandler {
	return &PermissionHandler{registry: registry}
}

type createPermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	APIEndpoint string `json:"api_endpoint"`
}

type updatePermissionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	APIEndpoint *string `json:"api_endpoint"`
}

type permissionView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	APIEndpoint string `json:"api_endpoint"`
}

func newPermissionView(p *entities.Permission) permissionView {
	return permissionView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		APIEndpoint: p.APIEndpoint,
	}
}

// Create handles POST /permissions.
func (h *PermissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPermissionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	permission, err := h.registry.CreatePermission(r.Context(), &services.CreatePermissionInput{
		Name:        req.Name,
		Description: req.Description,
		APIEndpoint: req.APIEndpoint,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":       "Permission created successfully",
		"permission_id": permission.ID,
	})
}

// List handles GET /permissions.
func (h *PermissionHandler) List(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.registry.ListPermissions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]permissionView, 0, len(permissions))
	for _, p := range permissions {
		views = append(views, newPermissionView(p))
	}
	respondJSON(w, http.StatusOK, views)
}

// Get handles GET /permissions/{id}.
func (h *PermissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	permission, err := h.registry.GetPermission(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newPermissionView(permission))
}

// Update handles PUT /permissions/{id}.
func (h *PermissionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var req updatePermissionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	permission, err := h.registry.UpdatePermission(r.Context(), id, &services.PermissionPatch{
		Name:        req.Name,
		Description: req.Description,
		APIEndpoint: req.APIEndpoint,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Permission updated successfully",
		"permission": newPermissionView(permission),
	})
}

// Delete handles DELETE /permissions/{id}.
func (h *PermissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.registry.DeletePermission(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Permission deleted successfully",
	})
}
