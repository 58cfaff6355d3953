package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AlertNotice carries the alert fields a disaster notification is built from.
type AlertNotice struct {
	ID          uuid.UUID
	Title       string
	Description string
	Severity    string
	RegionTags  []string
}

// AlertMessage shapes a disaster alert notification. CRITICAL and HIGH
// alerts go out at high priority with a badge; others at normal priority.
func AlertMessage(n AlertNotice, now time.Time) Message {
	regions := n.RegionTags
	if regions == nil {
		regions = []string{}
	}
	msg := Message{
		Title: n.Title,
		Body:  truncate(n.Description, maxBodyLength),
		Data: map[string]any{
			"alert_id":    n.ID.String(),
			"severity":    n.Severity,
			"region_tags": regions,
			"timestamp":   now.UTC().Format(time.RFC3339),
			"type":        "disaster_alert",
		},
		Sound:    defaultSound,
		Priority: PriorityNormal,
		TTL:      alertTTL,
	}
	switch n.Severity {
	case "CRITICAL", "HIGH":
		badge := 1
		msg.Priority = PriorityHigh
		msg.Badge = &badge
	}
	return msg
}

// TestMessage shapes a connectivity test notification.
func TestMessage(title, body string, now time.Time) Message {
	if title == "" {
		title = "Test Notification"
	}
	if body == "" {
		body = "This is a test notification"
	}
	return Message{
		Title: title,
		Body:  body,
		Data: map[string]any{
			"type":      "test",
			"timestamp": now.UTC().Format(time.RFC3339),
		},
		Sound:    defaultSound,
		Priority: PriorityNormal,
		TTL:      testTTL,
	}
}

// SendAlert sends the notification for n to tokens.
func (c *ExpoClient) SendAlert(ctx context.Context, n AlertNotice, tokens []string) Result {
	return c.Send(ctx, tokens, AlertMessage(n, c.now()))
}

// SendTest sends a test notification to a single token.
func (c *ExpoClient) SendTest(ctx context.Context, token, title, body string) Result {
	return c.Send(ctx, []string{token}, TestMessage(title, body, c.now()))
}

// truncate shortens s to limit characters, ending in "..." when cut.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
