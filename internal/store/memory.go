package store

import (
	"context"
	"iter"
	"sync"

	"day.glimpse/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps glimpses and tokens in process. Glimpse updates are
// serialized per profile; token inserts share one uniqueness lock.
type MemoryStore struct {
	glimpses map[models.Identity]*models.Glimpse
	mu       sync.RWMutex
	profiles *keyLock

	tokens   map[models.TokenID]*models.AccessToken
	holders  map[models.Identity][]models.TokenRef
	tokensMu sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		glimpses: make(map[models.Identity]*models.Glimpse),
		profiles: newKeyLock(),
		tokens:   make(map[models.TokenID]*models.AccessToken),
		holders:  make(map[models.Identity][]models.TokenRef),
	}
}

func (s *MemoryStore) GetGlimpse(ctx context.Context, profile models.Identity) (*models.Glimpse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.glimpses[profile]
	if !ok {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

func (s *MemoryStore) UpdateGlimpse(ctx context.Context, profile models.Identity, fn UpdateFunc) (*models.Glimpse, error) {
	unlock := s.profiles.Lock(string(profile))
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	current := s.glimpses[profile].Clone()
	s.mu.RUnlock()

	next, err := fn(current)
	if err != nil {
		return nil, err
	}

	stored := next.Clone()
	s.mu.Lock()
	s.glimpses[profile] = stored
	s.mu.Unlock()

	return stored.Clone(), nil
}

func (s *MemoryStore) CreateToken(ctx context.Context, token *models.AccessToken) error {
	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()

	if _, exists := s.tokens[token.ID]; exists {
		return ErrConflict
	}

	stored := *token
	stored.SourceStorageHash = append([]byte(nil), token.SourceStorageHash...)
	stored.Data = append([]byte(nil), token.Data...)
	s.tokens[token.ID] = &stored
	s.holders[token.Holder] = append(s.holders[token.Holder], models.TokenRef{
		ID:      token.ID,
		Profile: token.Profile,
	})
	return nil
}

func (s *MemoryStore) GetToken(ctx context.Context, id models.TokenID) (*models.AccessToken, error) {
	s.tokensMu.RLock()
	defer s.tokensMu.RUnlock()

	t, ok := s.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *t
	c.SourceStorageHash = append([]byte(nil), t.SourceStorageHash...)
	c.Data = append([]byte(nil), t.Data...)
	return &c, nil
}

func (s *MemoryStore) HolderTokens(ctx context.Context, holder models.Identity) iter.Seq2[models.TokenRef, error] {
	return func(yield func(models.TokenRef, error) bool) {
		s.tokensMu.RLock()
		refs := append([]models.TokenRef(nil), s.holders[holder]...)
		s.tokensMu.RUnlock()

		for _, ref := range refs {
			if err := ctx.Err(); err != nil {
				yield(models.TokenRef{}, err)
				return
			}
			if !yield(ref, nil) {
				return
			}
		}
	}
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.glimpses = make(map[models.Identity]*models.Glimpse)
	s.mu.Unlock()

	s.tokensMu.Lock()
	s.tokens = make(map[models.TokenID]*models.AccessToken)
	s.holders = make(map[models.Identity][]models.TokenRef)
	s.tokensMu.Unlock()
	return nil
}
