package oracle

import (
	"context"
	"sync"

	"day.glimpse/internal/models"
)

var _ FollowerOracle = (*Static)(nil)

// Static keeps a directed follow graph in memory.
type Static struct {
	mu      sync.RWMutex
	follows map[models.Identity]map[models.Identity]struct{}
}

func NewStatic() *Static {
	return &Static{follows: make(map[models.Identity]map[models.Identity]struct{})}
}

// Follow records that follower follows followee.
func (s *Static) Follow(follower, followee models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.follows[follower]
	if !ok {
		set = make(map[models.Identity]struct{})
		s.follows[follower] = set
	}
	set[followee] = struct{}{}
}

func (s *Static) Unfollow(follower, followee models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.follows[follower], followee)
}

// Befriend records a follow in both directions.
func (s *Static) Befriend(a, b models.Identity) {
	s.Follow(a, b)
	s.Follow(b, a)
}

func (s *Static) AreMutualFollowers(_ context.Context, a, b models.Identity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ab := s.follows[a][b]
	_, ba := s.follows[b][a]
	return ab && ba, nil
}
