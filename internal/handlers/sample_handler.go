package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SampleHandler serves the demo service endpoints that plans gate access
// to. They carry no logic of their own; callers are expected to hit
// /access/{user_id}/{api_request} first.
type SampleHandler struct{}

// NewSampleHandler creates a new SampleHandler.
func NewSampleHandler() *SampleHandler {
	return &SampleHandler{}
}

// Serve handles GET /api/{service}.
func (h *SampleHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "service")
	n, ok := sampleServiceNumber(name)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown service")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Service %d is active", n),
	})
}

// sampleServiceNumber accepts "service1" through "service6".
func sampleServiceNumber(name string) (int, bool) {
	const prefix = "service"
	if len(name) != len(prefix)+1 || name[:len(prefix)] != prefix {
		return 0, false
	}
	n := int(name[len(prefix)] - '0')
	if n < 1 || n > 6 {
		return 0, false
	}
	return n, true
}
