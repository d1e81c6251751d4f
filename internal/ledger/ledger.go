// Package ledger records access tokens. A token is minted once, never
// changes, and is indexed by its holder so close-friend checks can enumerate
// a viewer's holdings.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"day.glimpse/internal/clock"
	"day.glimpse/internal/crypto"
	"day.glimpse/internal/events"
	"day.glimpse/internal/metrics"
	"day.glimpse/internal/models"
	"day.glimpse/internal/store"
)

// Snapshot is the glimpse content captured into a token at mint time.
type Snapshot struct {
	StorageHash []byte
	Force       bool
	Data        []byte
}

type Ledger struct {
	store     store.TokenStore
	clock     clock.Clock
	epoch     time.Duration
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Ledger)

func WithClock(c clock.Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithMintEpoch sets the granularity of the timestamp folded into token ids.
func WithMintEpoch(d time.Duration) Option {
	return func(l *Ledger) {
		l.epoch = d
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(l *Ledger) {
		l.publisher = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

func New(st store.TokenStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:     st,
		clock:     clock.Real{},
		epoch:     time.Second,
		publisher: events.Discard{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TokenIDFor is the pure id derivation, exposed for clients that want to
// predict an id before minting.
func (l *Ledger) TokenIDFor(issuer, profile models.Identity, ts uint64) models.TokenID {
	return crypto.TokenID(issuer, profile, ts)
}

// Issue mints a token held by issuer against profile. A second issue by the
// same issuer against the same profile inside one mint epoch produces the
// same id and fails with ErrDuplicateToken.
func (l *Ledger) Issue(ctx context.Context, issuer, profile models.Identity, snap Snapshot) (models.TokenID, error) {
	now := l.clock.Now()
	ts := crypto.MintTimestamp(now, l.epoch)
	id := crypto.TokenID(issuer, profile, ts)

	token := &models.AccessToken{
		ID:                id,
		Holder:            issuer,
		Profile:           profile,
		SourceStorageHash: append([]byte(nil), snap.StorageHash...),
		MintedAt:          now.UTC(),
		Force:             snap.Force,
		Data:              append([]byte(nil), snap.Data...),
	}

	if err := l.store.CreateToken(ctx, token); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.TokenID{}, fmt.Errorf("token %s: %w", id, models.ErrDuplicateToken)
		}
		return models.TokenID{}, fmt.Errorf("issue token: %w", err)
	}

	l.metrics.IncMinted()
	l.logger.InfoContext(ctx, "token minted", "token_id", id.String(), "minter", issuer, "profile", profile)
	if err := l.publisher.Publish(ctx, models.Event{
		Kind:        models.EventTokenMinted,
		Profile:     profile,
		Minter:      issuer,
		StorageHash: token.SourceStorageHash,
		TokenID:     &id,
		At:          token.MintedAt,
	}); err != nil {
		l.logger.ErrorContext(ctx, "publish event", "kind", models.EventTokenMinted, "error", err)
	}
	return id, nil
}

// TokensHeldBy lazily enumerates holder's tokens. The sequence is finite and
// may be ranged over again to restart.
func (l *Ledger) TokensHeldBy(ctx context.Context, holder models.Identity) iter.Seq2[models.TokenRef, error] {
	return l.store.HolderTokens(ctx, holder)
}

func (l *Ledger) DataOf(ctx context.Context, id models.TokenID) (*models.TokenData, error) {
	t, err := l.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.TokenData{
		StorageHash: t.SourceStorageHash,
		Profile:     t.Profile,
		MintedAt:    t.MintedAt,
	}, nil
}

func (l *Ledger) OwnerOf(ctx context.Context, id models.TokenID) (models.Identity, error) {
	t, err := l.get(ctx, id)
	if err != nil {
		return "", err
	}
	return t.Holder, nil
}

func (l *Ledger) get(ctx context.Context, id models.TokenID) (*models.AccessToken, error) {
	t, err := l.store.GetToken(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("token %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	return t, nil
}
