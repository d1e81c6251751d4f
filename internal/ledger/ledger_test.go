package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"day.glimpse/internal/clock"
	"day.glimpse/internal/crypto"
	"day.glimpse/internal/events"
	"day.glimpse/internal/models"
	"day.glimpse/internal/store"
)

const (
	alice models.Identity = "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
	bob   models.Identity = "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc"
	carol models.Identity = "0x90f79bf6eb2c4f870365e785982e1f101e93b906"
)

type LedgerSuite struct {
	suite.Suite
	ctx      context.Context
	clock    *clock.Manual
	recorder *events.Recorder
	ledger   *Ledger
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewManual(time.Unix(1_700_000_000, 250_000_000))
	s.recorder = &events.Recorder{}
	s.ledger = New(store.NewMemoryStore(), WithClock(s.clock), WithPublisher(s.recorder))
}

func (s *LedgerSuite) TestIssue() {
	snap := Snapshot{StorageHash: []byte("ipfs://QmTest123"), Force: true}

	id, err := s.ledger.Issue(s.ctx, bob, alice, snap)
	s.Require().NoError(err)
	s.Equal(crypto.TokenID(bob, alice, 1_700_000_000), id)

	s.Run("emits a mint event with the token id", func() {
		evts := s.recorder.Filter(models.EventTokenMinted, alice)
		s.Require().Len(evts, 1)
		s.Equal(bob, evts[0].Minter)
		s.Require().NotNil(evts[0].TokenID)
		s.Equal(id, *evts[0].TokenID)
	})

	s.Run("records metadata and owner", func() {
		data, err := s.ledger.DataOf(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(snap.StorageHash, data.StorageHash)
		s.Equal(alice, data.Profile)
		s.Equal(int64(1_700_000_000), data.MintedAt.Unix())

		owner, err := s.ledger.OwnerOf(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(bob, owner)
	})

	s.Run("same issuer and profile in the same second collides", func() {
		s.clock.Advance(500 * time.Millisecond)
		_, err := s.ledger.Issue(s.ctx, bob, alice, snap)
		s.Require().ErrorIs(err, models.ErrDuplicateToken)
	})

	s.Run("another issuer against the same profile does not collide", func() {
		_, err := s.ledger.Issue(s.ctx, carol, alice, snap)
		s.Require().NoError(err)
	})

	s.Run("same issuer succeeds once the timestamp advances", func() {
		s.clock.Advance(time.Second)
		next, err := s.ledger.Issue(s.ctx, bob, alice, snap)
		s.Require().NoError(err)
		s.NotEqual(id, next)
	})
}

func (s *LedgerSuite) TestMintEpoch() {
	l := New(store.NewMemoryStore(), WithClock(s.clock), WithMintEpoch(time.Hour))

	s.clock.Advance(17 * time.Minute)
	mintedAt := s.clock.Now()
	id, err := l.Issue(s.ctx, bob, alice, Snapshot{StorageHash: []byte("h")})
	s.Require().NoError(err)

	data, err := l.DataOf(s.ctx, id)
	s.Require().NoError(err)
	s.True(mintedAt.Equal(data.MintedAt), "minted at keeps the real time, not the epoch start")
	s.Equal(l.TokenIDFor(bob, alice, uint64(mintedAt.Truncate(time.Hour).Unix())), id)

	s.clock.Advance(10 * time.Minute)
	_, err = l.Issue(s.ctx, bob, alice, Snapshot{StorageHash: []byte("h")})
	s.Require().ErrorIs(err, models.ErrDuplicateToken)
}

func (s *LedgerSuite) TestTokensHeldBy() {
	for _, profile := range []models.Identity{alice, carol} {
		_, err := s.ledger.Issue(s.ctx, bob, profile, Snapshot{StorageHash: []byte("h")})
		s.Require().NoError(err)
	}

	got := map[models.Identity]models.TokenID{}
	for ref, err := range s.ledger.TokensHeldBy(s.ctx, bob) {
		s.Require().NoError(err)
		got[ref.Profile] = ref.ID
	}
	s.Len(got, 2)
	s.Equal(s.ledger.TokenIDFor(bob, alice, 1_700_000_000), got[alice])

	for range s.ledger.TokensHeldBy(s.ctx, alice) {
		s.Fail("alice holds no tokens")
	}
}

func (s *LedgerSuite) TestUnknownToken() {
	_, err := s.ledger.DataOf(s.ctx, models.TokenID{9})
	s.Require().ErrorIs(err, models.ErrNotFound)

	_, err = s.ledger.OwnerOf(s.ctx, models.TokenID{9})
	s.Require().ErrorIs(err, models.ErrNotFound)
}
