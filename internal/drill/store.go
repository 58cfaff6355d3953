package drill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prepwise/prepwise-api/internal/db"
)

// ScenarioFilter narrows the scenario list. Zero values mean no filter.
type ScenarioFilter struct {
	Region     string
	Difficulty Difficulty
}

// AttemptFilter narrows an actor's attempt history.
type AttemptFilter struct {
	ScenarioID *uuid.UUID
	Completed  *bool
}

// AttemptWrite is one scored submission ready to be persisted.
type AttemptWrite struct {
	OwnerID    uuid.UUID
	ScenarioID uuid.UUID
	Date       time.Time
	Responses  Responses
	Score      int
	Completed  bool
}

// Store persists scenarios and attempts in Postgres.
type Store struct {
	pool *db.Pool
}

// NewStore creates a Store on pool.
func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// --------------------------------------------------------------------------
// Scenarios
// --------------------------------------------------------------------------

// CreateScenario inserts a normalized, validated scenario.
func (s *Store) CreateScenario(ctx context.Context, in ScenarioInput) (*Scenario, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO drill_scenarios AS s (
			title, description, region_tags, decision_tree, difficulty,
			estimated_duration, max_score, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+db.ScenarioColumns,
		in.Title, in.Description, in.RegionTags, in.Tree, string(in.Difficulty),
		in.EstimatedDuration, in.MaxScore, *in.IsActive,
	)
	sc, err := scanScenario(row)
	if err != nil {
		return nil, fmt.Errorf("insert scenario: %w", err)
	}
	return sc, nil
}

// ReplaceScenario overwrites every authored field of scenario id.
func (s *Store) ReplaceScenario(ctx context.Context, id uuid.UUID, in ScenarioInput) (*Scenario, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE drill_scenarios AS s SET
			title = $2, description = $3, region_tags = $4, decision_tree = $5,
			difficulty = $6, estimated_duration = $7, max_score = $8,
			is_active = $9, updated_at = NOW()
		WHERE s.id = $1
		RETURNING `+db.ScenarioColumns,
		id, in.Title, in.Description, in.RegionTags, in.Tree, string(in.Difficulty),
		in.EstimatedDuration, in.MaxScore, *in.IsActive,
	)
	sc, err := scanScenario(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update scenario: %w", err)
	}
	return sc, nil
}

// GetScenario returns an active scenario.
func (s *Store) GetScenario(ctx context.Context, id uuid.UUID) (*Scenario, error) {
	sc, err := scanScenario(s.pool.QueryRow(ctx, "scenario_by_id", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scenario: %w", err)
	}
	return sc, nil
}

// ScenarioIDByTitle returns the oldest scenario with the given title.
func (s *Store) ScenarioIDByTitle(ctx context.Context, title string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, "scenario_id_by_title", title).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("lookup scenario by title: %w", err)
	}
	return id, nil
}

// ListScenarios returns active scenarios, newest first, with attempt counts.
func (s *Store) ListScenarios(ctx context.Context, f ScenarioFilter) ([]ScenarioSummary, error) {
	var where db.Where
	where.AddRaw("s.is_active = true")
	if f.Region != "" {
		where.Add("? = ANY(s.region_tags)", f.Region)
	}
	if f.Difficulty != "" {
		where.Add("s.difficulty = ?", string(f.Difficulty))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.title, s.description, s.region_tags, s.decision_tree,
			s.difficulty, s.estimated_duration, s.max_score, s.is_active, s.created_at,
			(SELECT COUNT(*) FROM drill_attempts a WHERE a.scenario_id = s.id)
		FROM drill_scenarios s`+where.SQL()+`
		ORDER BY s.created_at DESC`,
		where.Args()...,
	)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	out := []ScenarioSummary{}
	for rows.Next() {
		var (
			sum  ScenarioSummary
			tree Tree
		)
		if err := rows.Scan(
			&sum.ID, &sum.Title, &sum.Description, &sum.RegionTags, &tree,
			&sum.Difficulty, &sum.EstimatedDuration, &sum.MaxScore, &sum.IsActive, &sum.CreatedAt,
			&sum.AttemptsCount,
		); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		sum.TotalSteps = tree.TotalSteps()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func scanScenario(row pgx.Row) (*Scenario, error) {
	var sc Scenario
	if err := row.Scan(
		&sc.ID, &sc.Title, &sc.Description, &sc.RegionTags, &sc.Tree, &sc.Difficulty,
		&sc.EstimatedDuration, &sc.MaxScore, &sc.IsActive, &sc.CreatedAt, &sc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	sc.TotalSteps = sc.Tree.TotalSteps()
	return &sc, nil
}

// --------------------------------------------------------------------------
// Attempts
// --------------------------------------------------------------------------

// UpsertAttempt writes the day's attempt in a single statement. A first
// submission stores the requested completion state; a repeat on the same day
// replaces the responses and score and leaves the attempt completed, keeping
// the original end time if one was set.
func (s *Store) UpsertAttempt(ctx context.Context, w AttemptWrite) (*Attempt, error) {
	path := w.Responses.Path
	if path == nil {
		path = []string{}
	}
	choices := w.Responses.ChoicesMade
	if choices == nil {
		choices = map[string]string{}
	}

	a := Attempt{
		OwnerID:    w.OwnerID,
		ScenarioID: w.ScenarioID,
		Responses:  Responses{Path: path, ChoicesMade: choices},
		Score:      w.Score,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO drill_attempts (
			owner_id, scenario_id, attempt_date, path, choices_made, score, completed, ended_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::boolean, CASE WHEN $7::boolean THEN NOW() END)
		ON CONFLICT (owner_id, scenario_id, attempt_date) DO UPDATE SET
			path         = EXCLUDED.path,
			choices_made = EXCLUDED.choices_made,
			score        = EXCLUDED.score,
			completed    = TRUE,
			ended_at     = COALESCE(drill_attempts.ended_at, NOW())
		RETURNING id, completed, started_at, ended_at`,
		w.OwnerID, w.ScenarioID, utcDate(w.Date), path, choices, w.Score, w.Completed,
	).Scan(&a.ID, &a.Completed, &a.StartedAt, &a.EndedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert attempt: %w", err)
	}
	return &a, nil
}

// GetAttempt returns one of owner's attempts.
func (s *Store) GetAttempt(ctx context.Context, owner, id uuid.UUID) (*Attempt, error) {
	a, err := scanAttempt(s.pool.QueryRow(ctx, "attempt_by_id", id, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

// ListAttempts returns owner's attempts, newest first.
func (s *Store) ListAttempts(ctx context.Context, owner uuid.UUID, f AttemptFilter) ([]Attempt, error) {
	var where db.Where
	where.Add("a.owner_id = ?", owner)
	if f.ScenarioID != nil {
		where.Add("a.scenario_id = ?", *f.ScenarioID)
	}
	if f.Completed != nil {
		where.Add("a.completed = ?", *f.Completed)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+db.AttemptColumns+`
		FROM drill_attempts a
		JOIN drill_scenarios s ON s.id = a.scenario_id`+where.SQL()+`
		ORDER BY a.started_at DESC`,
		where.Args()...,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAttempt(row pgx.Row) (*Attempt, error) {
	var a Attempt
	if err := row.Scan(
		&a.ID, &a.OwnerID, &a.ScenarioID, &a.ScenarioTitle, &a.MaxScore,
		&a.Responses.Path, &a.Responses.ChoicesMade, &a.Score, &a.Completed,
		&a.StartedAt, &a.EndedAt,
	); err != nil {
		return nil, err
	}
	a.Finalize()
	return &a, nil
}

// utcDate truncates t to its UTC calendar day.
func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
