// Package auth identifies the calling actor. Identity is owned by an external
// service; this package only verifies the bearer tokens it issues and enforces
// role checks.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the actor's role in the platform.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the actor may perform admin-only writes.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("missing bearer token")
)

var signingMethod = jwt.SigningMethodHS256

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	issuer string
}

// NewTokens creates a token codec for the given shared secret and issuer.
func NewTokens(secret, issuer string) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer}
}

// Issue signs a token for actor valid for ttl. Used by the ops CLI and tests;
// production tokens come from the identity service.
func (t *Tokens) Issue(actor Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  t.issuer,
		"sub":  actor.UserID.String(),
		"role": string(actor.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(signingMethod, claims).SignedString(t.secret)
}

// Parse verifies tokenString and returns the actor it names.
func (t *Tokens) Parse(tokenString string) (Actor, error) {
	token, err := jwt.Parse(
		tokenString,
		func(token *jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return Actor{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Actor{}, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Actor{}, ErrInvalidToken
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Actor{}, ErrInvalidToken
	}

	role, _ := claims["role"].(string)
	if !Role(role).Valid() {
		return Actor{}, ErrInvalidToken
	}

	return Actor{UserID: userID, Role: Role(role)}, nil
}

type ctxKey struct{}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// FromContext returns the actor stored by the middleware, if any.
func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(ctxKey{}).(Actor)
	return actor, ok
}
