// Package registry is the system of record for glimpses: one record per
// profile, created or replaced by its owner, deactivated by deletion or by a
// committed expiry.
//
// Expiry is evaluated lazily. A record past its TTL stays flagged active until
// someone calls MarkExpired; reads observe staleness without persisting it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"day.glimpse/internal/clock"
	"day.glimpse/internal/events"
	"day.glimpse/internal/metrics"
	"day.glimpse/internal/models"
	"day.glimpse/internal/store"
)

const DefaultTTL = 24 * time.Hour

type Registry struct {
	store     store.GlimpseStore
	ttl       time.Duration
	clock     clock.Clock
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Registry)

func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.ttl = ttl
	}
}

func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(r *Registry) {
		r.publisher = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func New(st store.GlimpseStore, opts ...Option) (*Registry, error) {
	r := &Registry{
		store:     st,
		ttl:       DefaultTTL,
		clock:     clock.Real{},
		publisher: events.Discard{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ttl <= 0 {
		return nil, fmt.Errorf("glimpse ttl must be positive, got %s", r.ttl)
	}
	return r, nil
}

func (r *Registry) TTL() time.Duration { return r.ttl }

func (r *Registry) Now() time.Time { return r.clock.Now() }

// SetGlimpse creates or replaces the caller's record. The caller is the
// profile; no other ownership check applies.
func (r *Registry) SetGlimpse(ctx context.Context, caller models.Identity, storageHash []byte, isPrivate bool) (*models.Glimpse, error) {
	if caller == "" {
		return nil, fmt.Errorf("caller identity is required: %w", models.ErrInvalidInput)
	}
	if len(storageHash) == 0 {
		return nil, fmt.Errorf("storage hash is required: %w", models.ErrInvalidInput)
	}

	now := r.clock.Now()
	g, err := r.store.UpdateGlimpse(ctx, caller, func(*models.Glimpse) (*models.Glimpse, error) {
		return &models.Glimpse{
			Profile:     caller,
			StorageHash: append([]byte(nil), storageHash...),
			CreatedAt:   now,
			IsPrivate:   isPrivate,
			IsActive:    true,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("set glimpse: %w", err)
	}

	r.metrics.IncMutation("set")
	r.logger.InfoContext(ctx, "glimpse set", "profile", caller, "private", isPrivate)
	r.publish(ctx, models.Event{
		Kind:        models.EventGlimpseCreated,
		Profile:     caller,
		StorageHash: g.StorageHash,
		IsPrivate:   g.IsPrivate,
		At:          now,
	})
	return g, nil
}

// Lookup returns the profile's active, unexpired record. It never writes.
func (r *Registry) Lookup(ctx context.Context, profile models.Identity) (*models.View, error) {
	g, err := r.active(ctx, profile)
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	if g.ExpiredAt(now, r.ttl) {
		return nil, models.ErrExpired
	}
	return &models.View{
		Glimpse:   g,
		Fresh:     now.Sub(g.CreatedAt) < r.ttl/2,
		ExpiresAt: g.CreatedAt.Add(r.ttl),
	}, nil
}

// DeleteGlimpse deactivates the caller's own record.
func (r *Registry) DeleteGlimpse(ctx context.Context, caller models.Identity) error {
	_, err := r.store.UpdateGlimpse(ctx, caller, func(cur *models.Glimpse) (*models.Glimpse, error) {
		if cur == nil || !cur.IsActive {
			return nil, fmt.Errorf("%w: %w", models.ErrUnauthorized, models.ErrNotFound)
		}
		cur.IsActive = false
		return cur, nil
	})
	if err != nil {
		return fmt.Errorf("delete glimpse: %w", err)
	}

	r.metrics.IncMutation("delete")
	r.logger.InfoContext(ctx, "glimpse deleted", "profile", caller)
	r.publish(ctx, models.Event{Kind: models.EventGlimpseDeleted, Profile: caller, At: r.clock.Now()})
	return nil
}

// MarkExpired commits the expiry of a stale record. Anyone may call it.
func (r *Registry) MarkExpired(ctx context.Context, caller, profile models.Identity) error {
	var now time.Time
	_, err := r.store.UpdateGlimpse(ctx, profile, func(cur *models.Glimpse) (*models.Glimpse, error) {
		if cur == nil || !cur.IsActive {
			return nil, models.ErrNotFound
		}
		now = r.clock.Now()
		if !cur.ExpiredAt(now, r.ttl) {
			return nil, models.ErrNotExpiredYet
		}
		cur.IsActive = false
		return cur, nil
	})
	if err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}

	r.metrics.IncMutation("expire")
	r.logger.InfoContext(ctx, "glimpse expired", "profile", profile, "caller", caller)
	r.publish(ctx, models.Event{Kind: models.EventGlimpseExpired, Profile: profile, At: now})
	return nil
}

// IsExpired reports whether an active record is past its TTL. Missing and
// inactive records are never expired.
func (r *Registry) IsExpired(ctx context.Context, profile models.Identity) (bool, error) {
	g, err := r.active(ctx, profile)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return g.ExpiredAt(r.clock.Now(), r.ttl), nil
}

func (r *Registry) active(ctx context.Context, profile models.Identity) (*models.Glimpse, error) {
	g, err := r.store.GetGlimpse(ctx, profile)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load glimpse: %w", err)
	}
	if !g.IsActive {
		return nil, models.ErrNotFound
	}
	return g, nil
}

// publish runs after the mutation committed, so a sink failure is logged
// rather than returned.
func (r *Registry) publish(ctx context.Context, e models.Event) {
	if err := r.publisher.Publish(ctx, e); err != nil {
		r.logger.ErrorContext(ctx, "publish event", "kind", e.Kind, "profile", e.Profile, "error", err)
	}
}
