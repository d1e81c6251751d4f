// Package closefriend derives the close-friend relation: a viewer is a close
// friend of a profile while it holds any token minted from that profile.
// Nothing revokes it; registry state plays no part.
package closefriend

import (
	"context"
	"fmt"
	"iter"

	"day.glimpse/internal/identity"
	"day.glimpse/internal/models"
)

// Holdings enumerates the tokens a holder owns.
type Holdings interface {
	TokensHeldBy(ctx context.Context, holder models.Identity) iter.Seq2[models.TokenRef, error]
}

type Index struct {
	holdings Holdings
}

func New(h Holdings) *Index {
	return &Index{holdings: h}
}

// IsCloseFriend scans every token viewer holds, stopping at the first one
// minted from profile.
func (x *Index) IsCloseFriend(ctx context.Context, viewer, profile models.Identity) (bool, error) {
	for ref, err := range x.holdings.TokensHeldBy(ctx, viewer) {
		if err != nil {
			return false, fmt.Errorf("enumerate tokens of %s: %w", viewer, err)
		}
		if identity.Equal(ref.Profile, profile) {
			return true, nil
		}
	}
	return false, nil
}

// CloseFriendsOf returns the profiles viewer is a close friend of, each once.
func (x *Index) CloseFriendsOf(ctx context.Context, viewer models.Identity) ([]models.Identity, error) {
	seen := make(map[models.Identity]struct{})
	var out []models.Identity
	for ref, err := range x.holdings.TokensHeldBy(ctx, viewer) {
		if err != nil {
			return nil, fmt.Errorf("enumerate tokens of %s: %w", viewer, err)
		}
		if _, ok := seen[ref.Profile]; ok {
			continue
		}
		seen[ref.Profile] = struct{}{}
		out = append(out, ref.Profile)
	}
	return out, nil
}
