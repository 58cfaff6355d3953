package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhere(t *testing.T) {
	var w Where
	assert.Equal(t, "", w.SQL())
	assert.Empty(t, w.Args())

	w.AddRaw("is_active = true")
	w.Add("severity = ?", "HIGH")
	w.Add("? = ANY(region_tags)", "coastal")

	assert.Equal(t, " WHERE is_active = true AND severity = $1 AND $2 = ANY(region_tags)", w.SQL())
	assert.Equal(t, []any{"HIGH", "coastal"}, w.Args())
}
