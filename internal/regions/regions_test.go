package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupe(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"keeps order", []string{"coastal", "urban"}, []string{"coastal", "urban"}},
		{"drops repeats and blanks", []string{"hills", "", "coastal", "hills", ""}, []string{"hills", "coastal"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Dedupe(tc.in))
		})
	}
}
