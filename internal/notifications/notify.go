// Package notifications delivers push notifications through the Expo push
// service.
//
// Pipeline: resolve active device tokens → validate → batch → send.
// Alert and test notifications are shaped here from their inputs.
package notifications

import (
	"errors"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	MaxBatchSize  = 100 // tokens per provider request
	maxBodyLength = 200
	alertTTL      = 24 * time.Hour
	testTTL       = time.Hour
	errorBodySize = 512

	defaultSound   = "default"
	PriorityHigh   = "high"
	PriorityNormal = "normal"
)

// Failure messages reported when nothing is sent.
const (
	ErrMsgNoTokens      = "No tokens provided"
	ErrMsgNoValidTokens = "No valid tokens found"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Message is the content of one push notification. Zero values take the
// provider defaults: sound "default", priority "high", a 24h TTL.
type Message struct {
	Title    string
	Body     string
	Data     map[string]any
	Sound    string
	Badge    *int
	Priority string
	TTL      time.Duration
}

// Ticket is the provider's receipt for one token in a batch.
type Ticket struct {
	Status  string         `json:"status"`
	ID      string         `json:"id,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// BatchResult is the outcome of one successful provider request.
type BatchResult struct {
	Tokens  int      `json:"tokens"`
	Tickets []Ticket `json:"tickets"`
}

// Result aggregates a send across batches. Success is true only when every
// batch was accepted. Error is set when nothing was sent at all.
type Result struct {
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Errors       []string      `json:"errors,omitempty"`
	Results      []BatchResult `json:"results,omitempty"`
	Unregistered []string      `json:"unregistered,omitempty"`
}

// Err returns nil on success and otherwise an error describing every failure.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	if r.Error != "" {
		return errors.New(r.Error)
	}
	if len(r.Errors) == 0 {
		return errors.New("notification not sent")
	}
	return errors.New(strings.Join(r.Errors, "; "))
}
