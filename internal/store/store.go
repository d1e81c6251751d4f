package store

import (
	"context"
	"errors"
	"iter"

	"day.glimpse/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// UpdateFunc receives a private copy of the current record (nil when the
// profile never published) and returns the record to persist. Returning an
// error aborts the update and leaves storage untouched.
type UpdateFunc func(current *models.Glimpse) (*models.Glimpse, error)

type GlimpseStore interface {
	GetGlimpse(ctx context.Context, profile models.Identity) (*models.Glimpse, error)
	// UpdateGlimpse runs fn atomically with respect to every other update of
	// the same profile.
	UpdateGlimpse(ctx context.Context, profile models.Identity, fn UpdateFunc) (*models.Glimpse, error)
}

type TokenStore interface {
	// CreateToken inserts token and its holder index entry together, or
	// returns ErrConflict if the id is taken.
	CreateToken(ctx context.Context, token *models.AccessToken) error
	GetToken(ctx context.Context, id models.TokenID) (*models.AccessToken, error)
	// HolderTokens enumerates the tokens held by holder. Each range over the
	// returned sequence starts a fresh enumeration.
	HolderTokens(ctx context.Context, holder models.Identity) iter.Seq2[models.TokenRef, error]
}

type Store interface {
	GlimpseStore
	TokenStore
	Close() error
}
