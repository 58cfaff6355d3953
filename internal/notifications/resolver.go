package notifications

import (
	"context"
	"fmt"
	"log/slog"
)

// TokenSource lists the push tokens of active devices.
type TokenSource interface {
	ActiveTokens(ctx context.Context) ([]string, error)
}

// Resolver picks the device tokens an alert is delivered to.
type Resolver struct {
	src    TokenSource
	logger *slog.Logger
}

// NewResolver creates a Resolver over src.
func NewResolver(src TokenSource, logger *slog.Logger) *Resolver {
	return &Resolver{src: src, logger: logger}
}

// Resolve returns the unique, valid tokens of every active device. Region
// tags are recorded but do not narrow the audience: devices carry no
// location, so every active device receives every alert.
func (r *Resolver) Resolve(ctx context.Context, regionTags []string) ([]string, error) {
	all, err := r.src.ActiveTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve device tokens: %w", err)
	}
	tokens := FilterTokens(all)
	r.logger.Info("resolved device tokens",
		"regions", regionTags,
		"region_filter", false,
		"active", len(all),
		"valid", len(tokens),
	)
	return tokens, nil
}
