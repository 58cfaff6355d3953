// Package handler provides HTTP handlers for all API endpoints.
// Handlers decode and validate requests, call the domain services and write
// JSON through the respond package.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-api/internal/alert"
	"github.com/prepwise/prepwise-api/internal/api/respond"
	"github.com/prepwise/prepwise-api/internal/cache"
	"github.com/prepwise/prepwise-api/internal/device"
	"github.com/prepwise/prepwise-api/internal/drill"
	"github.com/prepwise/prepwise-api/internal/notifications"
)

// HealthChecker verifies database connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AlertService is implemented by *alert.Service.
type AlertService interface {
	Create(ctx context.Context, in alert.CreateInput, createdBy uuid.UUID) (*alert.Created, error)
	Update(ctx context.Context, id uuid.UUID, in alert.UpdateInput) (*alert.Alert, error)
	Get(ctx context.Context, id uuid.UUID) (*alert.Alert, error)
	List(ctx context.Context, f alert.Filter) ([]alert.Alert, error)
	Active(ctx context.Context, f alert.Filter) ([]alert.Alert, error)
	Critical(ctx context.Context, f alert.Filter) ([]alert.Alert, error)
}

// DeviceStore is implemented by *device.Store.
type DeviceStore interface {
	Register(ctx context.Context, owner uuid.UUID, r device.Registration) (*device.Device, error)
	Get(ctx context.Context, owner, id uuid.UUID) (*device.Device, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]device.Device, error)
	Touch(ctx context.Context, owner, id uuid.UUID) (*device.Device, error)
	Deactivate(ctx context.Context, owner, id uuid.UUID) error
	DeactivateTokens(ctx context.Context, tokens []string) (int64, error)
}

// TestSender is implemented by *notifications.ExpoClient.
type TestSender interface {
	SendTest(ctx context.Context, token, title, body string) notifications.Result
}

// DrillService is implemented by *drill.Service.
type DrillService interface {
	CreateScenario(ctx context.Context, in drill.ScenarioInput) (*drill.Scenario, error)
	UpdateScenario(ctx context.Context, id uuid.UUID, in drill.ScenarioInput) (*drill.Scenario, error)
	GetScenario(ctx context.Context, id uuid.UUID) (*drill.Scenario, error)
	ListScenarios(ctx context.Context, f drill.ScenarioFilter) ([]drill.ScenarioSummary, error)
	SubmitAttempt(ctx context.Context, owner, scenarioID uuid.UUID, sub drill.Submission) (*drill.Attempt, error)
	GetAttempt(ctx context.Context, owner, id uuid.UUID) (*drill.Attempt, error)
	ListAttempts(ctx context.Context, owner uuid.UUID, f drill.AttemptFilter) ([]drill.Attempt, error)
	ScenarioAttempts(ctx context.Context, owner, scenarioID uuid.UUID) ([]drill.Attempt, error)
}

// Deps are the collaborators the handlers call.
type Deps struct {
	DB      HealthChecker
	Cache   *cache.Cache
	Alerts  AlertService
	Devices DeviceStore
	Push    TestSender
	Drills  DrillService
	Logger  *slog.Logger
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	db      HealthChecker
	cache   *cache.Cache
	alerts  AlertService
	devices DeviceStore
	push    TestSender
	drills  DrillService
	logger  *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(d Deps) *Handler {
	return &Handler{
		db:      d.DB,
		cache:   d.Cache,
		alerts:  d.Alerts,
		devices: d.Devices,
		push:    d.Push,
		drills:  d.Drills,
		logger:  d.Logger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "PrepWise API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.logger.Warn("database health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// internalError logs err and writes a generic 500.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "path", r.URL.Path)
	respond.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}
