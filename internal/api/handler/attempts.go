package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-api/internal/api/respond"
	"github.com/prepwise/prepwise-api/internal/drill"
)

// ListAttempts returns the caller's attempt history, newest first.
// @Summary List own attempts
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Param scenario query string false "Scenario ID"
// @Param completed query bool false "Completion state"
// @Success 200 {array} drill.Attempt
// @Router /api/v1/attempts [get]
func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f drill.AttemptFilter
	if id, err := uuid.Parse(q.Get("scenario")); err == nil {
		f.ScenarioID = &id
	}
	if v, err := strconv.ParseBool(q.Get("completed")); err == nil {
		f.Completed = &v
	}

	attempts, err := h.drills.ListAttempts(r.Context(), actor(r).UserID, f)
	if err != nil {
		h.internalError(w, r, "list attempts", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, attempts)
}

// GetAttempt returns one of the caller's attempts.
// @Summary Get own attempt
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Attempt ID"
// @Success 200 {object} drill.Attempt
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/attempts/{id} [get]
func (h *Handler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Attempt")
	if !ok {
		return
	}
	a, err := h.drills.GetAttempt(r.Context(), actor(r).UserID, id)
	if err != nil {
		h.drillError(w, r, "get attempt", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, a)
}
