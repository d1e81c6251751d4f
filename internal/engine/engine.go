// Package engine wires the registry, ledger, close-friend index, visibility
// gate and minting workflow into the operations the transport exposes. All
// identities are normalized here, once.
package engine

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"day.glimpse/internal/clock"
	"day.glimpse/internal/closefriend"
	"day.glimpse/internal/events"
	"day.glimpse/internal/identity"
	"day.glimpse/internal/ledger"
	"day.glimpse/internal/metrics"
	"day.glimpse/internal/minting"
	"day.glimpse/internal/models"
	"day.glimpse/internal/oracle"
	"day.glimpse/internal/registry"
	"day.glimpse/internal/store"
	"day.glimpse/internal/visibility"
)

type Deps struct {
	Store         store.Store
	Oracle        oracle.FollowerOracle
	Clock         clock.Clock
	Publisher     events.Publisher
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	TTL           time.Duration
	MintEpoch     time.Duration
	OracleTimeout time.Duration
}

type Engine struct {
	registry     *registry.Registry
	ledger       *ledger.Ledger
	closeFriends *closefriend.Index
	gate         *visibility.Gate
	minting      *minting.Workflow
	oracle       oracle.FollowerOracle
}

func New(d Deps) (*Engine, error) {
	if d.Store == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	if d.Oracle == nil {
		return nil, fmt.Errorf("engine: follower oracle is required")
	}
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Publisher == nil {
		d.Publisher = events.Discard{}
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.TTL == 0 {
		d.TTL = registry.DefaultTTL
	}

	reg, err := registry.New(d.Store,
		registry.WithTTL(d.TTL),
		registry.WithClock(d.Clock),
		registry.WithPublisher(d.Publisher),
		registry.WithLogger(d.Logger.With("component", "registry")),
		registry.WithMetrics(d.Metrics),
	)
	if err != nil {
		return nil, err
	}

	ledgerOpts := []ledger.Option{
		ledger.WithClock(d.Clock),
		ledger.WithPublisher(d.Publisher),
		ledger.WithLogger(d.Logger.With("component", "ledger")),
		ledger.WithMetrics(d.Metrics),
	}
	if d.MintEpoch > 0 {
		ledgerOpts = append(ledgerOpts, ledger.WithMintEpoch(d.MintEpoch))
	}
	led := ledger.New(d.Store, ledgerOpts...)

	guarded := oracle.NewGuarded(d.Oracle,
		oracle.WithTimeout(d.OracleTimeout),
		oracle.WithLogger(d.Logger.With("component", "oracle")),
		oracle.WithMetrics(d.Metrics),
	)

	cf := closefriend.New(led)
	return &Engine{
		registry:     reg,
		ledger:       led,
		closeFriends: cf,
		gate: visibility.New(reg, cf,
			visibility.WithLogger(d.Logger.With("component", "visibility")),
			visibility.WithMetrics(d.Metrics),
		),
		minting: minting.New(reg, guarded, led,
			minting.WithLogger(d.Logger.With("component", "minting")),
			minting.WithMetrics(d.Metrics),
		),
		oracle: guarded,
	}, nil
}

func (e *Engine) TTL() time.Duration { return e.registry.TTL() }

func (e *Engine) SetGlimpse(ctx context.Context, caller string, storageHash []byte, isPrivate bool) (*models.Glimpse, error) {
	c, err := identity.Parse(caller)
	if err != nil {
		return nil, err
	}
	return e.registry.SetGlimpse(ctx, c, storageHash, isPrivate)
}

// GetGlimpse reads profile's glimpse on behalf of viewer. An empty viewer is
// anonymous and only ever sees public content.
func (e *Engine) GetGlimpse(ctx context.Context, viewer, profile string) (*models.View, error) {
	p, err := identity.Parse(profile)
	if err != nil {
		return nil, err
	}
	return e.gate.Resolve(ctx, identity.Normalize(viewer), p)
}

func (e *Engine) DeleteGlimpse(ctx context.Context, caller string) error {
	c, err := identity.Parse(caller)
	if err != nil {
		return err
	}
	return e.registry.DeleteGlimpse(ctx, c)
}

func (e *Engine) MarkExpired(ctx context.Context, caller, profile string) error {
	p, err := identity.Parse(profile)
	if err != nil {
		return err
	}
	return e.registry.MarkExpired(ctx, identity.Normalize(caller), p)
}

func (e *Engine) IsExpired(ctx context.Context, profile string) (bool, error) {
	p, err := identity.Parse(profile)
	if err != nil {
		return false, err
	}
	return e.registry.IsExpired(ctx, p)
}

// Mint issues a token to minter from profile's current glimpse.
func (e *Engine) Mint(ctx context.Context, minter, profile string, force bool, data []byte) (models.TokenID, error) {
	m, p, err := parsePair(minter, profile)
	if err != nil {
		return models.TokenID{}, err
	}
	return e.minting.Mint(ctx, minting.Request{Minter: m, Profile: p, Force: force, Data: data})
}

func (e *Engine) IsCloseFriend(ctx context.Context, viewer, profile string) (bool, error) {
	v, p, err := parsePair(viewer, profile)
	if err != nil {
		return false, err
	}
	return e.closeFriends.IsCloseFriend(ctx, v, p)
}

func (e *Engine) CloseFriendsOf(ctx context.Context, viewer string) ([]models.Identity, error) {
	v, err := identity.Parse(viewer)
	if err != nil {
		return nil, err
	}
	return e.closeFriends.CloseFriendsOf(ctx, v)
}

// AreMutualFollowers passes through to the guarded oracle.
func (e *Engine) AreMutualFollowers(ctx context.Context, a, b string) (bool, error) {
	x, y, err := parsePair(a, b)
	if err != nil {
		return false, err
	}
	return e.oracle.AreMutualFollowers(ctx, x, y)
}

func (e *Engine) TokensHeldBy(ctx context.Context, holder string) (iter.Seq2[models.TokenRef, error], error) {
	h, err := identity.Parse(holder)
	if err != nil {
		return nil, err
	}
	return e.ledger.TokensHeldBy(ctx, h), nil
}

func (e *Engine) DataOf(ctx context.Context, id models.TokenID) (*models.TokenData, error) {
	return e.ledger.DataOf(ctx, id)
}

func (e *Engine) OwnerOf(ctx context.Context, id models.TokenID) (models.Identity, error) {
	return e.ledger.OwnerOf(ctx, id)
}

func (e *Engine) TokenIDFor(issuer, profile string, ts uint64) (models.TokenID, error) {
	i, p, err := parsePair(issuer, profile)
	if err != nil {
		return models.TokenID{}, err
	}
	return e.ledger.TokenIDFor(i, p, ts), nil
}

func parsePair(a, b string) (models.Identity, models.Identity, error) {
	x, err := identity.Parse(a)
	if err != nil {
		return "", "", err
	}
	y, err := identity.Parse(b)
	if err != nil {
		return "", "", err
	}
	return x, y, nil
}
