// Package device stores the push-notification endpoints registered by users.
package device

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("device not found")
	ErrTokenTaken = errors.New("push token is registered to another user")
)

// Platform is the client platform a token was issued for.
type Platform string

const (
	IOS     Platform = "ios"
	Android Platform = "android"
	Web     Platform = "web"
)

// Device is one registered push endpoint.
type Device struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"-"`
	Token      string    `json:"push_token"`
	Platform   Platform  `json:"platform"`
	DeviceName *string   `json:"device_name"`
	IsActive   bool      `json:"is_active"`
	LastUsed   time.Time `json:"last_used"`
	CreatedAt  time.Time `json:"created_at"`
}

// Registration is a register-or-refresh request from a client.
type Registration struct {
	Token      string   `json:"push_token" validate:"required,max=255,pushtoken"`
	Platform   Platform `json:"platform" validate:"required,oneof=ios android web"`
	DeviceName *string  `json:"device_name" validate:"omitempty,max=100"`
}
