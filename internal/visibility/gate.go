// Package visibility decides whether a viewer may read a profile's glimpse.
package visibility

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"day.glimpse/internal/identity"
	"day.glimpse/internal/metrics"
	"day.glimpse/internal/models"
)

type Registry interface {
	Lookup(ctx context.Context, profile models.Identity) (*models.View, error)
}

type CloseFriends interface {
	IsCloseFriend(ctx context.Context, viewer, profile models.Identity) (bool, error)
}

type Gate struct {
	registry     Registry
	closeFriends CloseFriends
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

func New(registry Registry, closeFriends CloseFriends, opts ...Option) *Gate {
	g := &Gate{
		registry:     registry,
		closeFriends: closeFriends,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Resolve returns the glimpse viewer may see. Registry errors (ErrNotFound,
// ErrExpired) pass through unchanged. The owner and public checks run before
// the close-friend scan. An empty viewer is anonymous and is denied private
// content without a scan.
func (g *Gate) Resolve(ctx context.Context, viewer, profile models.Identity) (*models.View, error) {
	v, err := g.registry.Lookup(ctx, profile)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			g.metrics.IncReadDecision("not_found")
		case errors.Is(err, models.ErrExpired):
			g.metrics.IncReadDecision("expired")
		}
		return nil, err
	}

	if identity.Equal(viewer, profile) {
		g.metrics.IncReadDecision("allow_owner")
		return v, nil
	}

	if !v.Glimpse.IsPrivate {
		g.metrics.IncReadDecision("allow_public")
		return v, nil
	}

	var ok bool
	if viewer != "" {
		ok, err = g.closeFriends.IsCloseFriend(ctx, viewer, profile)
		if err != nil {
			return nil, fmt.Errorf("close friend lookup: %w", err)
		}
	}
	if !ok {
		g.metrics.IncReadDecision("deny")
		g.logger.DebugContext(ctx, "private glimpse denied", "viewer", viewer, "profile", profile)
		return nil, models.ErrRestrictedToCloseFriends
	}

	g.metrics.IncReadDecision("allow_close_friend")
	return v, nil
}
