// Package oracle holds the follower-relationship capability consulted by the
// minting workflow, and the guard that turns its failures into denials.
package oracle

//go:generate mockgen -source=oracle.go -destination=mocks/mocks.go -package=mocks FollowerOracle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"day.glimpse/internal/metrics"
	"day.glimpse/internal/models"
)

// FollowerOracle answers whether two identities follow each other. Absent
// relationship data is a false answer, not an error.
type FollowerOracle interface {
	AreMutualFollowers(ctx context.Context, a, b models.Identity) (bool, error)
}

// Guarded wraps a FollowerOracle so that any failed call reads as false.
type Guarded struct {
	next    FollowerOracle
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Guarded)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guarded) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guarded) {
		g.metrics = m
	}
}

// WithTimeout bounds each call; zero means the caller's context alone applies.
func WithTimeout(d time.Duration) Option {
	return func(g *Guarded) {
		g.timeout = d
	}
}

func NewGuarded(next FollowerOracle, opts ...Option) *Guarded {
	g := &Guarded{
		next:   next,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AreMutualFollowers never returns an error.
func (g *Guarded) AreMutualFollowers(ctx context.Context, a, b models.Identity) (bool, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	ok, err := g.call(ctx, a, b)
	if err != nil {
		g.metrics.IncOracleFailure()
		g.logger.WarnContext(ctx, "follower oracle failed, treating as non-mutual",
			"a", a, "b", b, "error", err)
		return false, nil
	}
	return ok, nil
}

func (g *Guarded) call(ctx context.Context, a, b models.Identity) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, &panicError{value: r}
		}
	}()
	return g.next.AreMutualFollowers(ctx, a, b)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("follower oracle panicked: %v", e.value)
}
