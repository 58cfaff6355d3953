package db

import (
	"strconv"
	"strings"
)

// Where accumulates AND-ed filter clauses with positional arguments. Each
// clause uses a single "?" placeholder which is rewritten to the next $n.
type Where struct {
	clauses []string
	args    []any
}

// Add appends clause with its argument.
func (w *Where) Add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.Replace(clause, "?", "$"+strconv.Itoa(len(w.args)), 1))
}

// AddRaw appends a clause that takes no argument.
func (w *Where) AddRaw(clause string) {
	w.clauses = append(w.clauses, clause)
}

// SQL returns the " WHERE ..." fragment, or "" when no clause was added.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args returns the positional arguments in placeholder order.
func (w *Where) Args() []any {
	return w.args
}
