package alert

import (
	"context"
	"errors"
	"fmt"
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

	"github.com/prepwise/prepwise-api/internal/notifications"
)

type memRepo struct {
	alerts map[uuid.UUID]*Alert
	err    error
}

func (m *memRepo) Create(_ context.Context, in CreateInput, by uuid.UUID) (*Alert, error) {
	if m.err != nil {
		return nil, m.err
	}
	a := &Alert{
		ID: uuid.New(), Title: in.Title, Description: in.Description, RegionTags: in.RegionTags,
		Severity: in.Severity, Source: in.Source, IsActive: *in.IsActive, PublishedAt: *in.PublishedAt,
		ExpiresAt: in.ExpiresAt, CreatedBy: &by,
	}
	m.alerts[a.ID] = a
	out := *a
	return &out, nil
}

func (m *memRepo) Update(_ context.Context, id uuid.UUID, in UpdateInput) (*Alert, error) {
	a, ok := m.alerts[id]
	if !ok {
		return nil, ErrNotFound
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

func (m *memRepo) Get(_ context.Context, id uuid.UUID) (*Alert, error) {
	a, ok := m.alerts[id]
	if !ok || !a.IsActive {
		return nil, ErrNotFound
	}
	out := *a
	return &out, nil
}

func (m *memRepo) List(_ context.Context, f Filter) ([]Alert, error) {
	var out []Alert
	for _, a := range m.alerts {
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

type fakeResolver struct {
	tokens []string
	err    error
	panic  bool
	calls  int
}

func (r *fakeResolver) Resolve(context.Context, []string) ([]string, error) {
	r.calls++
	if r.panic {
		panic("resolver exploded")
	}
	return r.tokens, r.err
}

type fakeDispatcher struct {
	result  notifications.Result
	calls   int
	notices []notifications.AlertNotice
	ctxErr  error
	hang    bool
}

func (d *fakeDispatcher) SendAlert(ctx context.Context, n notifications.AlertNotice, _ []string) notifications.Result {
	d.calls++
	d.notices = append(d.notices, n)
	d.ctxErr = ctx.Err()
	if d.hang {
		<-ctx.Done()
		return notifications.Result{Errors: []string{ctx.Err().Error()}}
	}
	return d.result
}

type fakePruner struct {
	tokens []string
}

func (p *fakePruner) DeactivateTokens(_ context.Context, tokens []string) (int64, error) {
	p.tokens = append(p.tokens, tokens...)
	return int64(len(tokens)), nil
}

type harness struct {
	svc        *Service
	repo       *memRepo
	resolver   *fakeResolver
	dispatcher *fakeDispatcher
	pruner     *fakePruner
}

func newHarness() *harness {
	h := &harness{
		repo:       &memRepo{alerts: map[uuid.UUID]*Alert{}},
		resolver:   &fakeResolver{tokens: []string{"ExponentPushToken[abc12345]"}},
		dispatcher: &fakeDispatcher{result: notifications.Result{Success: true}},
		pruner:     &fakePruner{},
	}
	h.svc = NewService(h.repo, h.resolver, h.dispatcher, h.pruner, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.svc.now = func() time.Time { return time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC) }
	return h
}

func input(active bool) CreateInput {
	return CreateInput{
		Title:       "Cyclone warning",
		Description: "Category 4 cyclone approaching the coast",
		RegionTags:  []string{"coastal", "coastal", "urban"},
		Severity:    High,
		IsActive:    &active,
	}
}

func TestCreateNotifies(t *testing.T) {
	h := newHarness()

	out, err := h.svc.Create(context.Background(), input(true), uuid.New())
	require.NoError(t, err)
	assert.True(t, out.NotificationSent)
	assert.Nil(t, out.NotificationError)
	assert.Equal(t, []string{"coastal", "urban"}, out.RegionTags)
	assert.Equal(t, DefaultSource, out.Source)
	assert.Equal(t, []string{"coastal", "urban"}, out.AffectedRegions)

	require.Equal(t, 1, h.dispatcher.calls)
	n := h.dispatcher.notices[0]
	assert.Equal(t, out.ID, n.ID)
	assert.Equal(t, "HIGH", n.Severity)
}

func TestCreateInactiveDoesNotNotify(t *testing.T) {
	h := newHarness()

	out, err := h.svc.Create(context.Background(), input(false), uuid.New())
	require.NoError(t, err)
	assert.False(t, out.NotificationSent)
	assert.Nil(t, out.NotificationError)
	assert.Zero(t, h.resolver.calls)
	assert.Zero(t, h.dispatcher.calls)
	assert.Len(t, h.repo.alerts, 1)
}

func TestCreateSurvivesNotificationFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness)
		wantErr string
	}{
		{
			name: "provider failure",
			setup: func(h *harness) {
				h.dispatcher.result = notifications.Result{Errors: []string{"batch 1: provider returned 503: down"}}
			},
			wantErr: "provider returned 503",
		},
		{
			name: "no valid tokens",
			setup: func(h *harness) {
				h.dispatcher.result = notifications.Result{Error: notifications.ErrMsgNoValidTokens}
			},
			wantErr: notifications.ErrMsgNoValidTokens,
		},
		{
			name:    "resolver error",
			setup:   func(h *harness) { h.resolver.err = errors.New("pool closed") },
			wantErr: "pool closed",
		},
		{
			name:    "resolver panic",
			setup:   func(h *harness) { h.resolver.panic = true },
			wantErr: "resolver exploded",
		},
		{
			name:    "no recipients",
			setup:   func(h *harness) { h.resolver.tokens = nil },
			wantErr: NoTokensMessage,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			tc.setup(h)

			out, err := h.svc.Create(context.Background(), input(true), uuid.New())
			require.NoError(t, err)
			assert.False(t, out.NotificationSent)
			require.NotNil(t, out.NotificationError)
			assert.True(t, strings.Contains(*out.NotificationError, tc.wantErr), *out.NotificationError)

			_, err = h.repo.Get(context.Background(), out.ID)
			assert.NoError(t, err, "alert stays persisted")
		})
	}
}

func TestCreateStoreFailure(t *testing.T) {
	h := newHarness()
	h.repo.err = errors.New("insert failed")

	_, err := h.svc.Create(context.Background(), input(true), uuid.New())
	assert.Error(t, err)
	assert.Zero(t, h.dispatcher.calls)
}

func TestCreateDetachesFromRequestCancel(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := h.svc.Create(ctx, input(true), uuid.New())
	require.NoError(t, err)
	assert.True(t, out.NotificationSent)
	assert.NoError(t, h.dispatcher.ctxErr)
}

func TestCreateNotifyTimeout(t *testing.T) {
	h := newHarness()
	h.dispatcher.hang = true
	h.svc.WithNotifyTimeout(50 * time.Millisecond)

	start := time.Now()
	out, err := h.svc.Create(context.Background(), input(true), uuid.New())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, out.NotificationSent)
	require.NotNil(t, out.NotificationError)
	assert.Contains(t, *out.NotificationError, "deadline exceeded")
}

func TestCreateBoundsSlowProvider(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	expo := notifications.NewExpoClient(notifications.ExpoConfig{URL: srv.URL, Timeout: 30 * time.Second}, logger)

	h := newHarness()
	h.resolver.tokens = make([]string, 250)
	for i := range h.resolver.tokens {
		h.resolver.tokens[i] = fmt.Sprintf("ExponentPushToken[device-%04d]", i)
	}
	h.svc = NewService(h.repo, h.resolver, expo, h.pruner, logger).WithNotifyTimeout(200 * time.Millisecond)

	start := time.Now()
	out, err := h.svc.Create(context.Background(), input(true), uuid.New())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)

	assert.False(t, out.NotificationSent)
	require.NotNil(t, out.NotificationError)
	for _, batch := range []string{"batch 1", "batch 2", "batch 3"} {
		assert.Contains(t, *out.NotificationError, batch)
	}

	_, err = h.repo.Get(context.Background(), out.ID)
	assert.NoError(t, err)
}

func TestCreatePrunesUnregisteredTokens(t *testing.T) {
	h := newHarness()
	h.dispatcher.result = notifications.Result{Success: true, Unregistered: []string{"ExponentPushToken[gone-gone]"}}

	_, err := h.svc.Create(context.Background(), input(true), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, []string{"ExponentPushToken[gone-gone]"}, h.pruner.tokens)
}

func TestUpdateNeverNotifies(t *testing.T) {
	h := newHarness()
	out, err := h.svc.Create(context.Background(), input(false), uuid.New())
	require.NoError(t, err)

	active := true
	title := "Cyclone warning (updated)"
	updated, err := h.svc.Update(context.Background(), out.ID, UpdateInput{Title: &title, IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.True(t, updated.IsActive)
	assert.Zero(t, h.dispatcher.calls)

	_, err = h.svc.Update(context.Background(), uuid.New(), UpdateInput{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetHidesInactive(t *testing.T) {
	h := newHarness()
	out, err := h.svc.Create(context.Background(), input(false), uuid.New())
	require.NoError(t, err)

	_, err = h.svc.Get(context.Background(), out.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFinalize(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	a := Alert{ExpiresAt: &past}
	a.Finalize(now)
	assert.True(t, a.IsExpired)
	assert.Equal(t, []string{"All Regions"}, a.AffectedRegions)

	b := Alert{ExpiresAt: &future, RegionTags: []string{"hills"}}
	b.Finalize(now)
	assert.False(t, b.IsExpired)
	assert.Equal(t, []string{"hills"}, b.AffectedRegions)

	var c Alert
	c.Finalize(now)
	assert.False(t, c.IsExpired)
}

func TestInputValidation(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	in := CreateInput{Title: "t", Description: "d", Geometry: []byte(`[1,2]`), ExpiresAt: &earlier}
	in.Normalize(now)
	fields := in.Validate()
	assert.Contains(t, fields, "geometry")
	assert.Contains(t, fields, "expires_at")
	assert.Equal(t, Medium, in.Severity)

	ok := CreateInput{Title: "t", Description: "d", Geometry: []byte(`{"type":"Point","coordinates":[77.2,28.6]}`)}
	ok.Normalize(now)
	assert.Empty(t, ok.Validate())

	assert.Empty(t, UpdateInput{Geometry: []byte("null")}.Validate())
	assert.Contains(t, UpdateInput{Geometry: []byte(`"x"`)}.Validate(), "geometry")
}
