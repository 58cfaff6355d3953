// Package drill implements drill scenarios: the authored decision tree, the
// attempt scorer and the persistence of daily attempts.
package drill

import (
	"fmt"
	"sort"
	"strings"
)

// Tree is an authored decision tree. Steps are keyed by step id and the
// attempt starts at StartStep.
type Tree struct {
	StartStep string          `json:"start_step"`
	Steps     map[string]Step `json:"steps"`
}

// Step is one decision point. A step without choices is terminal.
type Step struct {
	Prompt  string   `json:"text"`
	Choices []Choice `json:"choices"`
}

// Choice is a selectable option with a signed score delta. An empty Next
// ends the drill.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"text"`
	Delta int    `json:"score"`
	Next  string `json:"next,omitempty"`
}

// ValidationError lists every problem found in an authored document, keyed by
// the JSON path of the offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid decision tree: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

// Validate checks referential integrity: the start step exists, every next
// reference names an existing step and choice ids are unique per step.
// It returns a *ValidationError or nil.
func (t Tree) Validate() error {
	verr := &ValidationError{}

	if len(t.Steps) == 0 {
		verr.add("decision_tree.steps", "at least one step is required")
	}
	switch {
	case t.StartStep == "":
		verr.add("decision_tree.start_step", "is required")
	case len(t.Steps) > 0:
		if _, ok := t.Steps[t.StartStep]; !ok {
			verr.add("decision_tree.start_step", fmt.Sprintf("unknown step %q", t.StartStep))
		}
	}

	for stepID, step := range t.Steps {
		if strings.TrimSpace(stepID) == "" {
			verr.add("decision_tree.steps", "step ids must be non-empty")
		}
		seen := make(map[string]bool, len(step.Choices))
		for i, c := range step.Choices {
			field := fmt.Sprintf("decision_tree.steps.%s.choices[%d]", stepID, i)
			if c.ID == "" {
				verr.add(field+".id", "is required")
			} else if seen[c.ID] {
				verr.add(field+".id", fmt.Sprintf("duplicate choice id %q", c.ID))
			}
			seen[c.ID] = true

			if c.Next == "" {
				continue
			}
			if _, ok := t.Steps[c.Next]; !ok {
				verr.add(field+".next", fmt.Sprintf("unknown step %q", c.Next))
			}
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// TotalSteps counts the distinct steps reachable from the start step.
// Unknown targets add nothing and each step is visited once, so cyclic trees
// terminate.
func (t Tree) TotalSteps() int {
	if _, ok := t.Steps[t.StartStep]; !ok {
		return 0
	}

	visited := map[string]bool{t.StartStep: true}
	queue := []string{t.StartStep}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range t.Steps[id].Choices {
			if c.Next == "" || visited[c.Next] {
				continue
			}
			if _, ok := t.Steps[c.Next]; !ok {
				continue
			}
			visited[c.Next] = true
			queue = append(queue, c.Next)
		}
	}
	return len(visited)
}

// choice returns the choice with the given id at stepID.
func (t Tree) choice(stepID, choiceID string) (Choice, bool) {
	step, ok := t.Steps[stepID]
	if !ok {
		return Choice{}, false
	}
	for _, c := range step.Choices {
		if c.ID == choiceID {
			return c, true
		}
	}
	return Choice{}, false
}
