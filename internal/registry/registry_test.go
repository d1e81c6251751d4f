package registry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"day.glimpse/internal/clock"
	"day.glimpse/internal/events"
	"day.glimpse/internal/models"
	"day.glimpse/internal/store"
)

const (
	alice models.Identity = "alice"
	bob   models.Identity = "bob"
)

var testHash = []byte("ipfs://QmTest123")

type RegistrySuite struct {
	suite.Suite
	ctx      context.Context
	clock    *clock.Manual
	recorder *events.Recorder
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewManual(time.Unix(1_700_000_000, 0))
	s.recorder = &events.Recorder{}

	r, err := New(store.NewMemoryStore(),
		WithClock(s.clock),
		WithPublisher(s.recorder),
	)
	s.Require().NoError(err)
	s.registry = r
}

func (s *RegistrySuite) TestNewRejectsNonPositiveTTL() {
	_, err := New(store.NewMemoryStore(), WithTTL(0))
	s.Require().Error(err)

	r, err := New(store.NewMemoryStore(), WithTTL(time.Minute))
	s.Require().NoError(err)
	s.Equal(time.Minute, r.TTL())
}

func (s *RegistrySuite) TestSetGlimpse() {
	s.Run("rejects empty storage hash", func() {
		_, err := s.registry.SetGlimpse(s.ctx, alice, nil, false)
		s.Require().ErrorIs(err, models.ErrInvalidInput)
	})

	s.Run("creates an active record and emits an event", func() {
		g, err := s.registry.SetGlimpse(s.ctx, alice, testHash, false)
		s.Require().NoError(err)
		s.True(g.IsActive)
		s.Equal(alice, g.Profile)

		evts := s.recorder.Filter(models.EventGlimpseCreated, alice)
		s.Require().Len(evts, 1)
		s.Equal(alice, evts[0].Profile)
	})

	s.Run("replaces the existing record", func() {
		_, err := s.registry.SetGlimpse(s.ctx, alice, []byte("ipfs://QmNewTest456"), true)
		s.Require().NoError(err)
		s.Len(s.recorder.Filter(models.EventGlimpseCreated, alice), 2)

		v, err := s.registry.Lookup(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal([]byte("ipfs://QmNewTest456"), v.Glimpse.StorageHash)
		s.True(v.Glimpse.IsPrivate)
	})

	s.Run("reactivates after deletion and resets createdAt", func() {
		s.Require().NoError(s.registry.DeleteGlimpse(s.ctx, alice))
		s.clock.Advance(time.Hour)

		g, err := s.registry.SetGlimpse(s.ctx, alice, testHash, false)
		s.Require().NoError(err)
		s.True(g.IsActive)
		s.True(s.clock.Now().Equal(g.CreatedAt))
	})
}

func (s *RegistrySuite) TestLookup() {
	_, err := s.registry.SetGlimpse(s.ctx, alice, testHash, false)
	s.Require().NoError(err)

	s.Run("returns an active record", func() {
		v, err := s.registry.Lookup(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal(testHash, v.Glimpse.StorageHash)
		s.False(v.Glimpse.IsPrivate)
		s.True(v.Glimpse.IsActive)
		s.True(v.Fresh)
		s.True(v.ExpiresAt.Equal(s.clock.Now().Add(DefaultTTL)))
	})

	s.Run("fails for a profile without data", func() {
		_, err := s.registry.Lookup(s.ctx, bob)
		s.Require().ErrorIs(err, models.ErrNotFound)
	})

	s.Run("is not fresh past half the ttl", func() {
		s.clock.Advance(13 * time.Hour)
		v, err := s.registry.Lookup(s.ctx, alice)
		s.Require().NoError(err)
		s.False(v.Fresh)
	})

	s.Run("exactly at ttl is still readable", func() {
		s.clock.Advance(11 * time.Hour)
		_, err := s.registry.Lookup(s.ctx, alice)
		s.Require().NoError(err)
	})

	s.Run("fails once past ttl without mutating state", func() {
		s.clock.Advance(time.Second)
		_, err := s.registry.Lookup(s.ctx, alice)
		s.Require().ErrorIs(err, models.ErrExpired)

		expired, err := s.registry.IsExpired(s.ctx, alice)
		s.Require().NoError(err)
		s.True(expired, "record must still be active and stale")
	})
}

func (s *RegistrySuite) TestMarkExpired() {
	_, err := s.registry.SetGlimpse(s.ctx, alice, testHash, false)
	s.Require().NoError(err)

	s.Run("fails before ttl elapses", func() {
		err := s.registry.MarkExpired(s.ctx, bob, alice)
		s.Require().ErrorIs(err, models.ErrNotExpiredYet)
	})

	s.Run("succeeds after ttl and deactivates", func() {
		s.clock.Advance(25 * time.Hour)
		s.Require().NoError(s.registry.MarkExpired(s.ctx, bob, alice))

		evts := s.recorder.Filter(models.EventGlimpseExpired, alice)
		s.Require().Len(evts, 1)

		_, err := s.registry.Lookup(s.ctx, alice)
		s.Require().ErrorIs(err, models.ErrNotFound)
	})

	s.Run("fails on already inactive data", func() {
		err := s.registry.MarkExpired(s.ctx, bob, alice)
		s.Require().ErrorIs(err, models.ErrNotFound)
	})

	s.Run("fails for unknown profile", func() {
		err := s.registry.MarkExpired(s.ctx, bob, "carol")
		s.Require().ErrorIs(err, models.ErrNotFound)
	})
}

func (s *RegistrySuite) TestDeleteGlimpse() {
	_, err := s.registry.SetGlimpse(s.ctx, alice, testHash, false)
	s.Require().NoError(err)

	s.Run("non-owner has nothing to delete", func() {
		err := s.registry.DeleteGlimpse(s.ctx, bob)
		s.Require().ErrorIs(err, models.ErrUnauthorized)
		s.Require().ErrorIs(err, models.ErrNotFound)

		_, err = s.registry.Lookup(s.ctx, alice)
		s.Require().NoError(err)
	})

	s.Run("owner deletes", func() {
		s.Require().NoError(s.registry.DeleteGlimpse(s.ctx, alice))
		s.Len(s.recorder.Filter(models.EventGlimpseDeleted, alice), 1)

		_, err := s.registry.Lookup(s.ctx, alice)
		s.Require().ErrorIs(err, models.ErrNotFound)
	})

	s.Run("second delete fails", func() {
		err := s.registry.DeleteGlimpse(s.ctx, alice)
		s.Require().ErrorIs(err, models.ErrUnauthorized)
	})
}

func (s *RegistrySuite) TestIsExpired() {
	_, err := s.registry.SetGlimpse(s.ctx, alice, testHash, false)
	s.Require().NoError(err)

	expired, err := s.registry.IsExpired(s.ctx, alice)
	s.Require().NoError(err)
	s.False(expired)

	s.clock.Advance(25 * time.Hour)
	expired, err = s.registry.IsExpired(s.ctx, alice)
	s.Require().NoError(err)
	s.True(expired)

	s.Require().NoError(s.registry.DeleteGlimpse(s.ctx, alice))
	expired, err = s.registry.IsExpired(s.ctx, alice)
	s.Require().NoError(err)
	s.False(expired, "inactive content is never expired")

	expired, err = s.registry.IsExpired(s.ctx, "nobody")
	s.Require().NoError(err)
	s.False(expired)
}

func (s *RegistrySuite) TestOneMinuteTTL() {
	r, err := New(store.NewMemoryStore(), WithClock(s.clock), WithTTL(time.Minute))
	s.Require().NoError(err)

	_, err = r.SetGlimpse(s.ctx, alice, testHash, false)
	s.Require().NoError(err)

	s.clock.Advance(61 * time.Second)
	_, err = r.Lookup(s.ctx, alice)
	s.Require().ErrorIs(err, models.ErrExpired)
	s.Require().NoError(r.MarkExpired(s.ctx, bob, alice))
}

func TestConcurrentSetGlimpseOnRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	st := store.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "glimpse:")
	t.Cleanup(func() { _ = st.Close() })

	recorder := &events.Recorder{}
	r, err := New(st, WithPublisher(recorder))
	require.NoError(t, err)

	const writers = 32
	g, gctx := errgroup.WithContext(ctx)
	for i := range writers {
		g.Go(func() error {
			_, err := r.SetGlimpse(gctx, alice, []byte(fmt.Sprintf("h%d", i)), i%2 == 0)
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, recorder.Filter(models.EventGlimpseCreated, alice), writers)
	v, err := r.Lookup(ctx, alice)
	require.NoError(t, err)
	assert.True(t, v.Glimpse.IsActive)
}
