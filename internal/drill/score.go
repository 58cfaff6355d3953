package drill

// Responses is a recorded traversal: the ordered step ids visited and the
// choice made at each step.
type Responses struct {
	Path        []string          `json:"path" validate:"required"`
	ChoicesMade map[string]string `json:"choices_made" validate:"required"`
}

// Score sums the deltas of the recorded choices along the path and caps the
// total at maxScore. Steps that are unknown, have no choices, or have no
// matching recorded choice contribute nothing. The lower bound is not
// clamped, so a net-negative path yields a negative score.
func Score(tree Tree, maxScore int, r Responses) int {
	total := 0
	for _, stepID := range r.Path {
		choiceID, ok := r.ChoicesMade[stepID]
		if !ok || choiceID == "" {
			continue
		}
		if c, ok := tree.choice(stepID, choiceID); ok {
			total += c.Delta
		}
	}
	return min(total, maxScore)
}
