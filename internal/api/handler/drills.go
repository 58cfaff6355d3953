package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-api/internal/api/respond"
	"github.com/prepwise/prepwise-api/internal/cache"
	"github.com/prepwise/prepwise-api/internal/drill"
)

func scenarioCacheKey(id uuid.UUID) string {
	return "drill:" + id.String()
}

// ListDrills returns active scenarios with step and attempt counts.
// @Summary List drill scenarios
// @Tags drills
// @Produce json
// @Security BearerAuth
// @Param region query string false "Region tag"
// @Param difficulty query string false "BEGINNER, INTERMEDIATE or ADVANCED"
// @Success 200 {array} drill.ScenarioSummary
// @Router /api/v1/drills [get]
func (h *Handler) ListDrills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := drill.ScenarioFilter{
		Region:     q.Get("region"),
		Difficulty: drill.Difficulty(q.Get("difficulty")),
	}
	if !f.Difficulty.Valid() {
		f.Difficulty = ""
	}

	scenarios, err := h.drills.ListScenarios(r.Context(), f)
	if err != nil {
		h.internalError(w, r, "list scenarios", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, scenarios)
}

// GetDrill returns a scenario including its decision tree.
// Responses are cached by scenario and carry an ETag.
// @Summary Get drill scenario
// @Tags drills
// @Produce json
// @Security BearerAuth
// @Param id path string true "Scenario ID"
// @Success 200 {object} drill.Scenario
// @Success 304
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/drills/{id} [get]
func (h *Handler) GetDrill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Scenario")
	if !ok {
		return
	}

	cacheKey := scenarioCacheKey(id)
	ttl := cache.TTLScenario

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	sc, err := h.drills.GetScenario(r.Context(), id)
	if err != nil {
		h.drillError(w, r, "get scenario", err)
		return
	}
	data, err := json.Marshal(sc)
	if err != nil {
		h.internalError(w, r, "encode scenario", err)
		return
	}

	etag := h.cache.Set(cacheKey, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}

// CreateDrill authors a new scenario.
// @Summary Create drill scenario
// @Tags drills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param scenario body drill.ScenarioInput true "Scenario"
// @Success 201 {object} drill.Scenario
// @Failure 400 {object} respond.ErrorResponse
// @Failure 403 {object} respond.ErrorResponse
// @Router /api/v1/drills [post]
func (h *Handler) CreateDrill(w http.ResponseWriter, r *http.Request) {
	var in drill.ScenarioInput
	if !decodeJSON(w, r, &in, false) || !validateStruct(w, in) {
		return
	}
	sc, err := h.drills.CreateScenario(r.Context(), in)
	if err != nil {
		h.drillError(w, r, "create scenario", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, sc)
}

// UpdateDrill replaces a scenario's content.
// @Summary Replace drill scenario
// @Tags drills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Scenario ID"
// @Param scenario body drill.ScenarioInput true "Scenario"
// @Success 200 {object} drill.Scenario
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/drills/{id} [put]
func (h *Handler) UpdateDrill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Scenario")
	if !ok {
		return
	}
	var in drill.ScenarioInput
	if !decodeJSON(w, r, &in, false) || !validateStruct(w, in) {
		return
	}
	sc, err := h.drills.UpdateScenario(r.Context(), id, in)
	if err != nil {
		h.drillError(w, r, "update scenario", err)
		return
	}
	h.cache.Delete(scenarioCacheKey(id))
	respond.WriteJSONObject(w, http.StatusOK, sc)
}

// SubmitAttempt scores the caller's traversal of a scenario. The server
// computes the score; repeated submissions on the same day update one attempt.
// @Summary Submit drill attempt
// @Tags drills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Scenario ID"
// @Param attempt body drill.Submission true "Path and choices"
// @Success 201 {object} drill.Attempt
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/drills/{id}/attempt [post]
func (h *Handler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Scenario")
	if !ok {
		return
	}
	var sub drill.Submission
	if !decodeJSON(w, r, &sub, false) || !validateStruct(w, sub) {
		return
	}
	a, err := h.drills.SubmitAttempt(r.Context(), actor(r).UserID, id, sub)
	if err != nil {
		h.drillError(w, r, "submit attempt", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, a)
}

// DrillAttempts returns the caller's attempts at one scenario.
// @Summary List own attempts for a scenario
// @Tags drills
// @Produce json
// @Security BearerAuth
// @Param id path string true "Scenario ID"
// @Success 200 {array} drill.Attempt
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/drills/{id}/attempts [get]
func (h *Handler) DrillAttempts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Scenario")
	if !ok {
		return
	}
	attempts, err := h.drills.ScenarioAttempts(r.Context(), actor(r).UserID, id)
	if err != nil {
		h.drillError(w, r, "list scenario attempts", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, attempts)
}

func (h *Handler) drillError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if fields, ok := drill.IsValidation(err); ok {
		respond.WriteValidationError(w, "Invalid decision tree", fields)
		return
	}
	if errors.Is(err, drill.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
		return
	}
	h.internalError(w, r, msg, err)
}
