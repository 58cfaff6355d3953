package notifications

import (
	"strings"
	"unicode"
)

const expoTokenPrefix = "ExponentPushToken["

// ValidateToken reports whether token looks like an Expo push token:
// either the bracketed ExponentPushToken[...] form with more than five
// characters inside, or any token longer than 25 characters containing at
// least one letter or digit.
func ValidateToken(token string) bool {
	if token == "" {
		return false
	}

	if strings.HasPrefix(token, expoTokenPrefix) && len(token) > 25 && strings.HasSuffix(token, "]") {
		inner := token[len(expoTokenPrefix):]
		if i := strings.IndexByte(inner, ']'); i >= 0 {
			inner = inner[:i]
		}
		if len(inner) > 5 {
			return true
		}
	}

	return len(token) > 25 && strings.IndexFunc(token, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

// FilterTokens returns the valid tokens in order, each at most once.
func FilterTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if seen[t] || !ValidateToken(t) {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
