package seed

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-api/internal/drill"
	"github.com/prepwise/prepwise-api/internal/validation"
)

//go:embed scenarios/*.json
var samples embed.FS

// Creator stores scenarios. *drill.Service implements it.
type Creator interface {
	FindByTitle(ctx context.Context, title string) (uuid.UUID, error)
	CreateScenario(ctx context.Context, in drill.ScenarioInput) (*drill.Scenario, error)
}

// Source is one scenario document and where it came from.
type Source struct {
	Name  string
	Input drill.ScenarioInput
}

// Samples returns the embedded sample scenarios in file name order.
func Samples() ([]Source, error) {
	names, err := fs.Glob(samples, "scenarios/*.json")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Source, 0, len(names))
	for _, name := range names {
		raw, err := samples.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		in, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(name), err)
		}
		out = append(out, Source{Name: path.Base(name), Input: in})
	}
	return out, nil
}

// ReadFiles decodes scenario documents from disk.
func ReadFiles(paths []string) ([]Source, error) {
	out := make([]Source, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		in, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, Source{Name: p, Input: in})
	}
	return out, nil
}

// Decode parses one scenario document. Unknown fields are rejected so typos
// in authored files surface instead of being dropped.
func Decode(raw []byte) (drill.ScenarioInput, error) {
	var in drill.ScenarioInput
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return drill.ScenarioInput{}, fmt.Errorf("decode scenario: %w", err)
	}
	return in, nil
}

// Check applies defaults and runs the same field and tree rules as the API
// without touching the database.
func Check(src Source) error {
	in := src.Input
	in.Normalize()
	fields, err := validation.Struct(in)
	if err != nil {
		return fmt.Errorf("%s: %w", src.Name, err)
	}
	if len(fields) > 0 {
		return fmt.Errorf("%s: invalid scenario: %v", src.Name, fields)
	}
	if err := in.Validate(); err != nil {
		if fields, ok := drill.IsValidation(err); ok {
			return fmt.Errorf("%s: invalid decision tree: %v", src.Name, fields)
		}
		return fmt.Errorf("%s: %w", src.Name, err)
	}
	return nil
}

// Scenarios creates every source whose title is not stored yet. Failures are
// collected per scenario; a canceled context stops the run.
func Scenarios(ctx context.Context, c Creator, sources []Source, logger *slog.Logger) Result {
	var result Result
	for _, src := range sources {
		if ctx.Err() != nil {
			result.AddErrorf("seed interrupted: %v", ctx.Err())
			return result
		}

		_, err := c.FindByTitle(ctx, src.Input.Title)
		switch {
		case err == nil:
			logger.Info("Scenario exists, skipping", "title", src.Input.Title)
			result.Skipped++
			continue
		case !errors.Is(err, drill.ErrNotFound):
			result.AddErrorf("%s: lookup: %v", src.Name, err)
			continue
		}

		sc, err := c.CreateScenario(ctx, src.Input)
		if err != nil {
			result.AddErrorf("%s: %v", src.Name, err)
			continue
		}
		logger.Info("Scenario created", "title", sc.Title, "id", sc.ID, "total_steps", sc.TotalSteps)
		result.Created++
	}
	return result
}
