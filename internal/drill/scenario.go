package drill

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-api/internal/regions"
)

var (
	ErrNotFound = errors.New("not found")
)

// Difficulty grades a scenario.
type Difficulty string

const (
	Beginner     Difficulty = "BEGINNER"
	Intermediate Difficulty = "INTERMEDIATE"
	Advanced     Difficulty = "ADVANCED"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case Beginner, Intermediate, Advanced:
		return true
	}
	return false
}

// Defaults applied to authored scenarios.
const (
	DefaultMaxScore          = 100
	DefaultEstimatedDuration = 5
)

// Scenario is an authored drill.
type Scenario struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	RegionTags        []string   `json:"region_tags"`
	Tree              Tree       `json:"decision_tree"`
	Difficulty        Difficulty `json:"difficulty"`
	EstimatedDuration int        `json:"estimated_duration"`
	MaxScore          int        `json:"max_score"`
	IsActive          bool       `json:"is_active"`
	TotalSteps        int        `json:"total_steps"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ScenarioSummary is the list view of a scenario. The tree itself is omitted.
type ScenarioSummary struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	RegionTags        []string   `json:"region_tags"`
	Difficulty        Difficulty `json:"difficulty"`
	EstimatedDuration int        `json:"estimated_duration"`
	MaxScore          int        `json:"max_score"`
	TotalSteps        int        `json:"total_steps"`
	AttemptsCount     int        `json:"attempts_count"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ScenarioInput is the authored content of a scenario, used for both create
// and full replacement.
type ScenarioInput struct {
	Title             string     `json:"title" validate:"required,max=200"`
	Description       string     `json:"description" validate:"required"`
	RegionTags        []string   `json:"region_tags" validate:"omitempty,dive,required,max=100"`
	Tree              Tree       `json:"decision_tree"`
	Difficulty        Difficulty `json:"difficulty" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	EstimatedDuration int        `json:"estimated_duration" validate:"omitempty,min=1,max=1440"`
	MaxScore          int        `json:"max_score" validate:"omitempty,min=1"`
	IsActive          *bool      `json:"is_active"`
}

// Normalize fills defaults and removes duplicate region tags, keeping order.
func (in *ScenarioInput) Normalize() {
	if in.Difficulty == "" {
		in.Difficulty = Beginner
	}
	if in.EstimatedDuration == 0 {
		in.EstimatedDuration = DefaultEstimatedDuration
	}
	if in.MaxScore == 0 {
		in.MaxScore = DefaultMaxScore
	}
	if in.IsActive == nil {
		active := true
		in.IsActive = &active
	}
	in.RegionTags = regions.Dedupe(in.RegionTags)
}

// Validate checks the fields the struct tags cannot express.
func (in ScenarioInput) Validate() error {
	verr := &ValidationError{}
	if err := in.Tree.Validate(); err != nil {
		var treeErr *ValidationError
		if errors.As(err, &treeErr) {
			verr = treeErr
		}
	}
	if in.MaxScore < 0 {
		verr.add("max_score", "must be positive")
	}
	if !in.Difficulty.Valid() && in.Difficulty != "" {
		verr.add("difficulty", "must be one of BEGINNER, INTERMEDIATE, ADVANCED")
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Attempt is one actor's recorded traversal of a scenario on a given day.
type Attempt struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         uuid.UUID  `json:"-"`
	ScenarioID      uuid.UUID  `json:"scenario"`
	ScenarioTitle   string     `json:"scenario_title"`
	Responses       Responses  `json:"responses"`
	Score           int        `json:"score"`
	MaxScore        int        `json:"-"`
	PercentageScore float64    `json:"percentage_score"`
	Completed       bool       `json:"completed"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	Duration        *float64   `json:"duration"`
}

// Finalize fills the derived fields.
func (a *Attempt) Finalize() {
	a.PercentageScore = PercentageScore(a.Score, a.MaxScore)
	a.Duration = Duration(a.StartedAt, a.EndedAt)
}

// PercentageScore returns score as a percentage of maxScore rounded to two
// decimals, or 0 when maxScore is 0.
func PercentageScore(score, maxScore int) float64 {
	if maxScore == 0 {
		return 0
	}
	return round2(float64(score) / float64(maxScore) * 100)
}

// Duration returns the minutes between start and end rounded to two decimals,
// or nil while the attempt is still in progress.
func Duration(start time.Time, end *time.Time) *float64 {
	if end == nil {
		return nil
	}
	d := round2(end.Sub(start).Minutes())
	return &d
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Submission is a client's attempt submission. Completed defaults to true.
type Submission struct {
	Responses Responses `json:"responses" validate:"required"`
	Completed *bool     `json:"completed"`
}

// IsCompleted reports the requested completion state.
func (s Submission) IsCompleted() bool {
	return s.Completed == nil || *s.Completed
}
