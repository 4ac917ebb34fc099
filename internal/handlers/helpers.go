package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/asakaida/tollgate/internal/repositories"
	"github.com/asakaida/tollgate/internal/services"
)

// === Shared helper functions for all handlers ===

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondServiceError maps service-layer errors to HTTP statuses. Anything
// unrecognized is a 500 with a generic body; the cause goes to the log, not
// to the caller.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, repositories.ErrDuplicateName):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repositories.ErrAlreadySubscribed):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repositories.ErrPlanInUse):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrPlanNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrSubscriptionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrPermissionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("internal error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func urlParamInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}
