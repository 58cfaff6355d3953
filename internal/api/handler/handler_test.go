package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/prepwise-api/internal/alert"
	"github.com/prepwise/prepwise-api/internal/api"
	"github.com/prepwise/prepwise-api/internal/api/handler"
	"github.com/prepwise/prepwise-api/internal/auth"
	"github.com/prepwise/prepwise-api/internal/cache"
	"github.com/prepwise/prepwise-api/internal/config"
	"github.com/prepwise/prepwise-api/internal/device"
	"github.com/prepwise/prepwise-api/internal/drill"
	"github.com/prepwise/prepwise-api/internal/notifications"
)

const (
	secret     = "handler-test-secret"
	validToken = "ExponentPushToken[abcdefghijklmnop]"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type fakeDB struct{ err error }

func (f fakeDB) HealthCheck(context.Context) error { return f.err }

type memAlerts struct {
	alerts map[uuid.UUID]*alert.Alert
}

func (m *memAlerts) Create(_ context.Context, in alert.CreateInput, by uuid.UUID) (*alert.Alert, error) {
	a := &alert.Alert{
		ID: uuid.New(), Title: in.Title, Description: in.Description, RegionTags: in.RegionTags,
		Severity: in.Severity, Source: in.Source, IsActive: *in.IsActive, PublishedAt: *in.PublishedAt,
		ExpiresAt: in.ExpiresAt, CreatedBy: &by,
	}
	m.alerts[a.ID] = a
	out := *a
	return &out, nil
}

func (m *memAlerts) Update(_ context.Context, id uuid.UUID, in alert.UpdateInput) (*alert.Alert, error) {
	a, ok := m.alerts[id]
	if !ok {
		return nil, alert.ErrNotFound
	}
	if in.Title != nil {
		a.Title = *in.Title
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	out := *a
	return &out, nil
}

func (m *memAlerts) Get(_ context.Context, id uuid.UUID) (*alert.Alert, error) {
	a, ok := m.alerts[id]
	if !ok || !a.IsActive {
		return nil, alert.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (m *memAlerts) List(_ context.Context, f alert.Filter) ([]alert.Alert, error) {
	out := []alert.Alert{}
	for _, a := range m.alerts {
		if !a.IsActive || (f.Severity != "" && a.Severity != f.Severity) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

type staticResolver []string

func (s staticResolver) Resolve(context.Context, []string) ([]string, error) { return s, nil }

type fakePush struct {
	result notifications.Result
	alerts int
	tests  []string
}

func (f *fakePush) SendAlert(_ context.Context, _ notifications.AlertNotice, _ []string) notifications.Result {
	f.alerts++
	return f.result
}

func (f *fakePush) SendTest(_ context.Context, token, _, _ string) notifications.Result {
	f.tests = append(f.tests, token)
	return f.result
}

type memDevices struct {
	devices     map[uuid.UUID]*device.Device
	deactivated []string
}

func (m *memDevices) Register(_ context.Context, owner uuid.UUID, r device.Registration) (*device.Device, error) {
	for _, d := range m.devices {
		if d.Token != r.Token {
			continue
		}
		if d.OwnerID != owner {
			return nil, device.ErrTokenTaken
		}
		d.Platform, d.IsActive = r.Platform, true
		out := *d
		return &out, nil
	}
	d := &device.Device{ID: uuid.New(), OwnerID: owner, Token: r.Token, Platform: r.Platform, IsActive: true}
	m.devices[d.ID] = d
	out := *d
	return &out, nil
}

func (m *memDevices) Get(_ context.Context, owner, id uuid.UUID) (*device.Device, error) {
	d, ok := m.devices[id]
	if !ok || d.OwnerID != owner {
		return nil, device.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (m *memDevices) ListByOwner(_ context.Context, owner uuid.UUID) ([]device.Device, error) {
	out := []device.Device{}
	for _, d := range m.devices {
		if d.OwnerID == owner {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memDevices) Touch(ctx context.Context, owner, id uuid.UUID) (*device.Device, error) {
	return m.Get(ctx, owner, id)
}

func (m *memDevices) Deactivate(_ context.Context, owner, id uuid.UUID) error {
	d, ok := m.devices[id]
	if !ok || d.OwnerID != owner {
		return device.ErrNotFound
	}
	d.IsActive = false
	return nil
}

func (m *memDevices) DeactivateTokens(_ context.Context, tokens []string) (int64, error) {
	m.deactivated = append(m.deactivated, tokens...)
	return int64(len(tokens)), nil
}

// memDrills stores scenarios and attempts in memory. Attempt scoring is done
// by the real drill.Service on top of it.
type memDrills struct {
	scenarios map[uuid.UUID]*drill.Scenario
	attempts  []*drill.Attempt
}

func (m *memDrills) CreateScenario(_ context.Context, in drill.ScenarioInput) (*drill.Scenario, error) {
	sc := &drill.Scenario{
		ID: uuid.New(), Title: in.Title, Description: in.Description, Tree: in.Tree,
		Difficulty: in.Difficulty, MaxScore: in.MaxScore, IsActive: *in.IsActive,
		TotalSteps: in.Tree.TotalSteps(),
	}
	m.scenarios[sc.ID] = sc
	return sc, nil
}

func (m *memDrills) ReplaceScenario(ctx context.Context, id uuid.UUID, in drill.ScenarioInput) (*drill.Scenario, error) {
	if _, ok := m.scenarios[id]; !ok {
		return nil, drill.ErrNotFound
	}
	sc, _ := m.CreateScenario(ctx, in)
	delete(m.scenarios, sc.ID)
	sc.ID = id
	m.scenarios[id] = sc
	return sc, nil
}

func (m *memDrills) GetScenario(_ context.Context, id uuid.UUID) (*drill.Scenario, error) {
	sc, ok := m.scenarios[id]
	if !ok || !sc.IsActive {
		return nil, drill.ErrNotFound
	}
	out := *sc
	return &out, nil
}

func (m *memDrills) ScenarioIDByTitle(context.Context, string) (uuid.UUID, error) {
	return uuid.Nil, drill.ErrNotFound
}

func (m *memDrills) ListScenarios(context.Context, drill.ScenarioFilter) ([]drill.ScenarioSummary, error) {
	out := []drill.ScenarioSummary{}
	for _, sc := range m.scenarios {
		out = append(out, drill.ScenarioSummary{ID: sc.ID, Title: sc.Title, TotalSteps: sc.TotalSteps})
	}
	return out, nil
}

func (m *memDrills) UpsertAttempt(_ context.Context, w drill.AttemptWrite) (*drill.Attempt, error) {
	now := time.Now()
	a := &drill.Attempt{
		ID: uuid.New(), OwnerID: w.OwnerID, ScenarioID: w.ScenarioID, Responses: w.Responses,
		Score: w.Score, Completed: w.Completed, StartedAt: now,
	}
	if w.Completed {
		a.EndedAt = &now
	}
	m.attempts = append(m.attempts, a)
	out := *a
	return &out, nil
}

func (m *memDrills) GetAttempt(_ context.Context, owner, id uuid.UUID) (*drill.Attempt, error) {
	for _, a := range m.attempts {
		if a.ID == id && a.OwnerID == owner {
			out := *a
			return &out, nil
		}
	}
	return nil, drill.ErrNotFound
}

func (m *memDrills) ListAttempts(_ context.Context, owner uuid.UUID, f drill.AttemptFilter) ([]drill.Attempt, error) {
	out := []drill.Attempt{}
	for _, a := range m.attempts {
		if a.OwnerID != owner || (f.ScenarioID != nil && a.ScenarioID != *f.ScenarioID) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Harness
// --------------------------------------------------------------------------

type env struct {
	t       *testing.T
	server  http.Handler
	tokens  *auth.Tokens
	alerts  *memAlerts
	devices *memDevices
	drills  *memDrills
	push    *fakePush
	cache   *cache.Cache
	admin   auth.Actor
	student auth.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		t:       t,
		tokens:  auth.NewTokens(secret, "prepwise"),
		alerts:  &memAlerts{alerts: map[uuid.UUID]*alert.Alert{}},
		devices: &memDevices{devices: map[uuid.UUID]*device.Device{}},
		drills:  &memDrills{scenarios: map[uuid.UUID]*drill.Scenario{}},
		push:    &fakePush{result: notifications.Result{Success: true}},
		cache:   cache.New(true),
		admin:   auth.Actor{UserID: uuid.New(), Role: auth.RoleAdmin},
		student: auth.Actor{UserID: uuid.New(), Role: auth.RoleStudent},
	}
	t.Cleanup(e.cache.Close)

	h := handler.New(handler.Deps{
		DB:      fakeDB{},
		Cache:   e.cache,
		Alerts:  alert.NewService(e.alerts, staticResolver{validToken}, e.push, e.devices, discard),
		Devices: e.devices,
		Push:    e.push,
		Drills:  drill.NewService(e.drills, discard),
		Logger:  discard,
	})
	cfg := &config.Config{CORSAllowOrigins: []string{"*"}}
	e.server = api.NewRouter(h, e.tokens, cfg, discard)
	return e
}

func (e *env) do(method, path string, as *auth.Actor, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		tok, err := e.tokens.Issue(*as, time.Hour)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Detail  string            `json:"detail"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// --------------------------------------------------------------------------
// Meta
// --------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]any](t, rec)["status"])

	rec = e.do(http.MethodGet, "/health/db", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/health/cache", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthDBDown(t *testing.T) {
	h := handler.New(handler.Deps{DB: fakeDB{err: errors.New("down")}, Logger: discard})
	rec := httptest.NewRecorder()
	h.HealthCheckDB(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/api/v1/alerts", "/api/v1/devices", "/api/v1/drills", "/api/v1/attempts"} {
		rec := e.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
