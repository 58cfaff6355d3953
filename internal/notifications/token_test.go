package notifications

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateToken(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"ExponentPushToken[abc12345]", true},
		{"ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]", true},
		{"", false},
		{"short", false},
		{"ExponentPushToken[abc]", false},
		{"ExponentPushToken[abcd]xxxxxxxx", true}, // falls through to the length rule
		{strings.Repeat("-", 30), false},
		{strings.Repeat("a", 25), false},
		{strings.Repeat("a", 26), true},
		{"fcm:" + strings.Repeat("Z9", 20), true},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ValidateToken(tc.token), "token %q", tc.token)
	}
}

func TestFilterTokens(t *testing.T) {
	good := "ExponentPushToken[abc12345]"
	other := "ExponentPushToken[zzz99999]"
	got := FilterTokens([]string{good, "", "short", other, good})
	assert.Equal(t, []string{good, other}, got)
	assert.Empty(t, FilterTokens(nil))
}
