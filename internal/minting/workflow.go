// Package minting issues access tokens from a profile's current public
// glimpse.
package minting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"day.glimpse/internal/identity"
	"day.glimpse/internal/ledger"
	"day.glimpse/internal/metrics"
	"day.glimpse/internal/models"
	"day.glimpse/internal/oracle"
)

type Registry interface {
	Lookup(ctx context.Context, profile models.Identity) (*models.View, error)
}

type Issuer interface {
	Issue(ctx context.Context, issuer, profile models.Identity, snap ledger.Snapshot) (models.TokenID, error)
}

// Request carries a mint attempt. Force and Data are opaque here; they ride
// along into the token for the metadata encoder.
type Request struct {
	Minter  models.Identity
	Profile models.Identity
	Force   bool
	Data    []byte
}

type Workflow struct {
	registry Registry
	oracle   oracle.FollowerOracle
	issuer   Issuer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Workflow)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) {
		w.metrics = m
	}
}

// New expects o to already absorb its own failures (see oracle.Guarded); any
// error it still returns is treated as a false answer.
func New(registry Registry, o oracle.FollowerOracle, issuer Issuer, opts ...Option) *Workflow {
	w := &Workflow{
		registry: registry,
		oracle:   o,
		issuer:   issuer,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) Mint(ctx context.Context, req Request) (models.TokenID, error) {
	if req.Minter == "" || req.Profile == "" {
		return models.TokenID{}, fmt.Errorf("minter and profile are required: %w", models.ErrInvalidInput)
	}

	v, err := w.registry.Lookup(ctx, req.Profile)
	if err != nil {
		w.reject(ctx, req, err)
		return models.TokenID{}, err
	}

	if v.Glimpse.IsPrivate {
		w.reject(ctx, req, models.ErrPrivateContent)
		return models.TokenID{}, models.ErrPrivateContent
	}

	// Self-mints never reach the oracle.
	if !identity.Equal(req.Minter, req.Profile) {
		mutual, err := w.oracle.AreMutualFollowers(ctx, req.Minter, req.Profile)
		if err != nil {
			w.logger.WarnContext(ctx, "follower oracle error treated as non-mutual",
				"minter", req.Minter, "profile", req.Profile, "error", err)
			mutual = false
		}
		if !mutual {
			w.reject(ctx, req, models.ErrMustBeMutualFollowers)
			return models.TokenID{}, models.ErrMustBeMutualFollowers
		}
	}

	id, err := w.issuer.Issue(ctx, req.Minter, req.Profile, ledger.Snapshot{
		StorageHash: v.Glimpse.StorageHash,
		Force:       req.Force,
		Data:        req.Data,
	})
	if err != nil {
		w.reject(ctx, req, err)
		return models.TokenID{}, err
	}
	return id, nil
}

func (w *Workflow) reject(ctx context.Context, req Request, err error) {
	reason := "error"
	switch {
	case errors.Is(err, models.ErrNotFound):
		reason = "not_found"
	case errors.Is(err, models.ErrExpired):
		reason = "expired"
	case errors.Is(err, models.ErrPrivateContent):
		reason = "private_content"
	case errors.Is(err, models.ErrMustBeMutualFollowers):
		reason = "not_mutual"
	case errors.Is(err, models.ErrDuplicateToken):
		reason = "duplicate"
	}
	w.metrics.IncMintRejection(reason)
	w.logger.InfoContext(ctx, "mint rejected", "minter", req.Minter, "profile", req.Profile, "reason", reason)
}
