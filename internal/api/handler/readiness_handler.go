package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/readiness"
)

// Readiness scores a tracked pull request. The optional conversations query
// parameter is the number of unresolved review threads.
func (h *PRHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	conversations := 0
	if raw := r.URL.Query().Get("conversations"); raw != "" {
		conversations, err = strconv.Atoi(raw)
		if err != nil || conversations < 0 {
			WriteError(w, fmt.Errorf("%w: conversations must be a non-negative integer", domain.ErrInvalidData), h.logger)
			return
		}
	}

	report, err := h.prService.Readiness(r.Context(), id, conversations)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, report, h.logger)
}

// Calculate scores raw inputs posted by the client.
func (h *PRHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var in readiness.Inputs
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, h.prService.Calculate(in), h.logger)
}
