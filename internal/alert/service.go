package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-api/internal/notifications"
)

// NoTokensMessage is reported when an alert had nobody to notify.
const NoTokensMessage = "No active device tokens found"

// DefaultNotifyTimeout bounds the fan-out for one created alert.
const DefaultNotifyTimeout = 90 * time.Second

// Repository is the persistence the service needs. *Store implements it.
type Repository interface {
	Create(ctx context.Context, in CreateInput, createdBy uuid.UUID) (*Alert, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Alert, error)
	Get(ctx context.Context, id uuid.UUID) (*Alert, error)
	List(ctx context.Context, f Filter) ([]Alert, error)
}

// Resolver picks the device tokens an alert goes to.
type Resolver interface {
	Resolve(ctx context.Context, regionTags []string) ([]string, error)
}

// Dispatcher delivers an alert notification.
type Dispatcher interface {
	SendAlert(ctx context.Context, n notifications.AlertNotice, tokens []string) notifications.Result
}

// TokenPruner deactivates devices whose tokens the provider rejected.
type TokenPruner interface {
	DeactivateTokens(ctx context.Context, tokens []string) (int64, error)
}

// Service publishes and queries alerts.
type Service struct {
	repo       Repository
	resolver   Resolver
	dispatcher Dispatcher
	pruner     TokenPruner
	logger     *slog.Logger
	now        func() time.Time

	notifyTimeout time.Duration
}

// NewService wires the alert service. pruner may be nil.
func NewService(repo Repository, resolver Resolver, dispatcher Dispatcher, pruner TokenPruner, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		resolver:   resolver,
		dispatcher: dispatcher,
		pruner:     pruner,
		logger:     logger,
		now:        time.Now,

		notifyTimeout: DefaultNotifyTimeout,
	}
}

// WithNotifyTimeout sets the overall budget for one alert fan-out. Batches
// still pending when it runs out are reported as failed. d <= 0 keeps the
// default.
func (s *Service) WithNotifyTimeout(d time.Duration) *Service {
	if d > 0 {
		s.notifyTimeout = d
	}
	return s
}

// Create stores the alert and, if it is active, notifies every resolved
// device. Notification runs after the write and its failures are reported in
// the result, never returned: once the alert is stored Create succeeds.
func (s *Service) Create(ctx context.Context, in CreateInput, createdBy uuid.UUID) (*Created, error) {
	in.Normalize(s.now())
	a, err := s.repo.Create(ctx, in, createdBy)
	if err != nil {
		return nil, err
	}
	a.Finalize(s.now())
	out := &Created{Alert: *a}

	if !a.IsActive {
		s.logger.Info("alert created inactive, not notifying", "alert_id", a.ID)
		return out, nil
	}

	// A client disconnect must not abort delivery of a stored alert, but the
	// response still has to reach the client before the write deadline.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	if errMsg := s.notify(nctx, a); errMsg != "" {
		out.NotificationError = &errMsg
	} else {
		out.NotificationSent = true
	}
	return out, nil
}

// notify runs the fan-out for a and returns a non-empty message on failure.
func (s *Service) notify(ctx context.Context, a *Alert) (errMsg string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("alert notification panicked", "alert_id", a.ID, "panic", r)
			errMsg = fmt.Sprintf("notification pipeline failed: %v", r)
		}
	}()

	tokens, err := s.resolver.Resolve(ctx, a.RegionTags)
	if err != nil {
		s.logger.Error("alert notification failed", "alert_id", a.ID, "error", err)
		return err.Error()
	}
	if len(tokens) == 0 {
		s.logger.Info("alert has no recipients", "alert_id", a.ID)
		return NoTokensMessage
	}

	res := s.dispatcher.SendAlert(ctx, notifications.AlertNotice{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Severity:    string(a.Severity),
		RegionTags:  a.RegionTags,
	}, tokens)

	s.prune(ctx, res.Unregistered)

	if err := res.Err(); err != nil {
		s.logger.Error("alert notification failed", "alert_id", a.ID, "tokens", len(tokens), "error", err)
		return err.Error()
	}
	s.logger.Info("alert notification sent", "alert_id", a.ID, "tokens", len(tokens))
	return ""
}

func (s *Service) prune(ctx context.Context, tokens []string) {
	if s.pruner == nil || len(tokens) == 0 {
		return
	}
	n, err := s.pruner.DeactivateTokens(ctx, tokens)
	if err != nil {
		s.logger.Warn("deactivate unregistered tokens", "tokens", len(tokens), "error", err)
		return
	}
	s.logger.Info("deactivated unregistered devices", "devices", n)
}

// Update changes the mutable fields of alert id. It never notifies.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Alert, error) {
	a, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	a.Finalize(s.now())
	return a, nil
}

// Get returns an active alert or ErrNotFound.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Alert, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Finalize(s.now())
	return a, nil
}

// List returns active alerts matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Alert, error) {
	alerts, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range alerts {
		alerts[i].Finalize(now)
	}
	return alerts, nil
}

// Active returns unexpired active alerts matching f.
func (s *Service) Active(ctx context.Context, f Filter) ([]Alert, error) {
	f.ExcludeExpired = true
	return s.List(ctx, f)
}

// Critical returns CRITICAL alerts matching f.
func (s *Service) Critical(ctx context.Context, f Filter) ([]Alert, error) {
	f.Severity = Critical
	return s.List(ctx, f)
}
