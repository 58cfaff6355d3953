package auth

import (
	"net/http"
	"strings"

	"github.com/prepwise/prepwise-api/internal/api/respond"
)

// Middleware returns middleware that rejects requests without a valid bearer
// token and stores the actor on the request context.
func Middleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				respond.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
				return
			}
			actor, err := tokens.Parse(raw)
			if err != nil {
				respond.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireRole returns middleware allowing only the listed roles. It must run
// after Middleware.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := FromContext(r.Context())
			if !ok {
				respond.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respond.WriteError(w, http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action")
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
