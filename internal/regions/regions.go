// Package regions holds helpers for the free-form region tags carried by
// alerts and drill scenarios.
package regions

// Dedupe drops empty and repeated tags while keeping first-seen order.
func Dedupe(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
