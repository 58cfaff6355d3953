package drill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence the service needs. *Store implements it.
type Repository interface {
	CreateScenario(ctx context.Context, in ScenarioInput) (*Scenario, error)
	ReplaceScenario(ctx context.Context, id uuid.UUID, in ScenarioInput) (*Scenario, error)
	GetScenario(ctx context.Context, id uuid.UUID) (*Scenario, error)
	ScenarioIDByTitle(ctx context.Context, title string) (uuid.UUID, error)
	ListScenarios(ctx context.Context, f ScenarioFilter) ([]ScenarioSummary, error)
	UpsertAttempt(ctx context.Context, w AttemptWrite) (*Attempt, error)
	GetAttempt(ctx context.Context, owner, id uuid.UUID) (*Attempt, error)
	ListAttempts(ctx context.Context, owner uuid.UUID, f AttemptFilter) ([]Attempt, error)
}

// Service authors scenarios and scores attempts.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a Service backed by repo.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// CreateScenario fills defaults, validates the tree and stores the scenario.
func (s *Service) CreateScenario(ctx context.Context, in ScenarioInput) (*Scenario, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.repo.CreateScenario(ctx, in)
}

// UpdateScenario replaces scenario id with in after validation.
func (s *Service) UpdateScenario(ctx context.Context, id uuid.UUID, in ScenarioInput) (*Scenario, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ReplaceScenario(ctx, id, in)
}

// GetScenario returns an active scenario or ErrNotFound.
func (s *Service) GetScenario(ctx context.Context, id uuid.UUID) (*Scenario, error) {
	return s.repo.GetScenario(ctx, id)
}

// ListScenarios returns active scenarios matching f.
func (s *Service) ListScenarios(ctx context.Context, f ScenarioFilter) ([]ScenarioSummary, error) {
	return s.repo.ListScenarios(ctx, f)
}

// FindByTitle returns the id of the scenario titled title, or ErrNotFound.
func (s *Service) FindByTitle(ctx context.Context, title string) (uuid.UUID, error) {
	return s.repo.ScenarioIDByTitle(ctx, title)
}

// SubmitAttempt scores sub against the scenario's tree and records it as
// owner's attempt for the current UTC day. The score is always computed
// here; nothing in the submission can set it.
func (s *Service) SubmitAttempt(ctx context.Context, owner, scenarioID uuid.UUID, sub Submission) (*Attempt, error) {
	sc, err := s.repo.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	score := Score(sc.Tree, sc.MaxScore, sub.Responses)
	a, err := s.repo.UpsertAttempt(ctx, AttemptWrite{
		OwnerID:    owner,
		ScenarioID: sc.ID,
		Date:       s.now(),
		Responses:  sub.Responses,
		Score:      score,
		Completed:  sub.IsCompleted(),
	})
	if err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}
	a.ScenarioTitle = sc.Title
	a.MaxScore = sc.MaxScore
	a.Finalize()

	s.logger.Info("drill attempt recorded",
		"scenario_id", sc.ID,
		"attempt_id", a.ID,
		"score", a.Score,
		"max_score", sc.MaxScore,
		"completed", a.Completed,
	)
	return a, nil
}

// GetAttempt returns one of owner's attempts or ErrNotFound.
func (s *Service) GetAttempt(ctx context.Context, owner, id uuid.UUID) (*Attempt, error) {
	return s.repo.GetAttempt(ctx, owner, id)
}

// ListAttempts returns owner's attempts matching f.
func (s *Service) ListAttempts(ctx context.Context, owner uuid.UUID, f AttemptFilter) ([]Attempt, error) {
	return s.repo.ListAttempts(ctx, owner, f)
}

// ScenarioAttempts returns owner's attempts at an active scenario.
func (s *Service) ScenarioAttempts(ctx context.Context, owner, scenarioID uuid.UUID) ([]Attempt, error) {
	if _, err := s.repo.GetScenario(ctx, scenarioID); err != nil {
		return nil, err
	}
	return s.repo.ListAttempts(ctx, owner, AttemptFilter{ScenarioID: &scenarioID})
}

// IsValidation reports whether err is an authoring validation failure and
// returns its field map.
func IsValidation(err error) (map[string]string, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}
