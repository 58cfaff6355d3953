package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prepwise/prepwise-api/internal/alert"
	"github.com/prepwise/prepwise-api/internal/api/respond"
)

// ListAlerts returns active alerts, newest first.
// @Summary List alerts
// @Description Active alerts filtered by region, severity, source and publication window. Expired alerts are excluded unless exclude_expired=false.
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param region query string false "Region tag"
// @Param severity query string false "LOW, MEDIUM, HIGH or CRITICAL"
// @Param source query string false "Case-insensitive substring of the source"
// @Param start_date query string false "RFC3339 or YYYY-MM-DD"
// @Param end_date query string false "RFC3339 or YYYY-MM-DD"
// @Param exclude_expired query bool false "Default true"
// @Success 200 {array} alert.Alert
// @Failure 401 {object} respond.ErrorResponse
// @Router /api/v1/alerts [get]
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.List(r.Context(), alertFilter(r))
	if err != nil {
		h.internalError(w, r, "list alerts", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, alerts)
}

// ActiveAlerts returns active, unexpired alerts.
// @Summary List active alerts
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} alert.Alert
// @Router /api/v1/alerts/active [get]
func (h *Handler) ActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.Active(r.Context(), alertFilter(r))
	if err != nil {
		h.internalError(w, r, "list active alerts", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, alerts)
}

// CriticalAlerts returns CRITICAL alerts.
// @Summary List critical alerts
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} alert.Alert
// @Router /api/v1/alerts/critical [get]
func (h *Handler) CriticalAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.Critical(r.Context(), alertFilter(r))
	if err != nil {
		h.internalError(w, r, "list critical alerts", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, alerts)
}

// GetAlert returns one active alert.
// @Summary Get alert
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} alert.Alert
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/alerts/{id} [get]
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Alert")
	if !ok {
		return
	}
	a, err := h.alerts.Get(r.Context(), id)
	if err != nil {
		h.alertError(w, r, "get alert", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, a)
}

// CreateAlert publishes an alert and notifies devices when it is active.
// The response is 201 whenever the alert was stored; delivery problems are
// reported in notification_error.
// @Summary Create alert
// @Tags alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param alert body alert.CreateInput true "Alert"
// @Success 201 {object} alert.Created
// @Failure 400 {object} respond.ErrorResponse
// @Failure 403 {object} respond.ErrorResponse
// @Router /api/v1/alerts [post]
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var in alert.CreateInput
	if !decodeJSON(w, r, &in, false) || !validateStruct(w, in) {
		return
	}
	in.Normalize(time.Now())
	if writeFields(w, in.Validate()) {
		return
	}

	created, err := h.alerts.Create(r.Context(), in, actor(r).UserID)
	if err != nil {
		h.internalError(w, r, "create alert", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, created)
}

// UpdateAlert changes an alert's mutable fields. Severity and region tags
// cannot be changed and are rejected as unknown fields.
// @Summary Update alert
// @Tags alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Param alert body alert.UpdateInput true "Fields to change"
// @Success 200 {object} alert.Alert
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/alerts/{id} [patch]
func (h *Handler) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Alert")
	if !ok {
		return
	}
	var in alert.UpdateInput
	if !decodeJSON(w, r, &in, true) || !validateStruct(w, in) {
		return
	}
	if writeFields(w, in.Validate()) {
		return
	}

	a, err := h.alerts.Update(r.Context(), id, in)
	if err != nil {
		h.alertError(w, r, "update alert", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, a)
}

func (h *Handler) alertError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, alert.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Alert not found")
		return
	}
	h.internalError(w, r, msg, err)
}

// alertFilter reads list filters from the query string. Unparsable dates
// and flags are ignored.
func alertFilter(r *http.Request) alert.Filter {
	q := r.URL.Query()
	f := alert.Filter{
		Region:         q.Get("region"),
		Severity:       alert.Severity(q.Get("severity")),
		Source:         q.Get("source"),
		Start:          parseDate(q.Get("start_date")),
		End:            parseDate(q.Get("end_date")),
		ExcludeExpired: true,
	}
	if !f.Severity.Valid() {
		f.Severity = ""
	}
	if v, err := strconv.ParseBool(q.Get("exclude_expired")); err == nil {
		f.ExcludeExpired = v
	}
	return f
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
