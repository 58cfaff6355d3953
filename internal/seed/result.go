// Package seed loads drill scenarios into the database, either the embedded
// samples or authored JSON files.
package seed

import "fmt"

// Result tracks counts and errors from a seeding operation.
type Result struct {
	Created int
	Skipped int
	Errors  []string
}

// Add merges another Result into this one.
func (r *Result) Add(other Result) {
	r.Created += other.Created
	r.Skipped += other.Skipped
	r.Errors = append(r.Errors, other.Errors...)
}

// AddError records an error message.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the seed operation.
func (r *Result) Summary() string {
	return fmt.Sprintf("created=%d skipped=%d errors=%d", r.Created, r.Skipped, len(r.Errors))
}
