package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"day.glimpse/internal/metrics"
	"day.glimpse/internal/models"
	"day.glimpse/internal/oracle/mocks"
)

func TestGuardedPassesAnswersThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockFollowerOracle(ctrl)
	next.EXPECT().AreMutualFollowers(gomock.Any(), models.Identity("a"), models.Identity("b")).Return(true, nil)
	next.EXPECT().AreMutualFollowers(gomock.Any(), models.Identity("a"), models.Identity("c")).Return(false, nil)

	g := NewGuarded(next)
	ok, err := g.AreMutualFollowers(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.AreMutualFollowers(context.Background(), "a", "c")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGuardedCoercesFailuresToFalse(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockFollowerOracle(ctrl)
	m := metrics.New(prometheus.NewRegistry())

	next.EXPECT().AreMutualFollowers(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, errors.New("reverted"))
	next.EXPECT().AreMutualFollowers(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, models.Identity, models.Identity) (bool, error) {
			panic("provider gone")
		})

	g := NewGuarded(next, WithMetrics(m))
	for range 2 {
		ok, err := g.AreMutualFollowers(context.Background(), "a", "b")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OracleFailures))
}

func TestGuardedAppliesTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockFollowerOracle(ctrl)
	next.EXPECT().AreMutualFollowers(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _, _ models.Identity) (bool, error) {
			<-ctx.Done()
			return true, ctx.Err()
		})

	g := NewGuarded(next, WithTimeout(10*time.Millisecond))
	ok, err := g.AreMutualFollowers(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatic(t *testing.T) {
	s := NewStatic()
	ctx := context.Background()

	s.Follow("a", "b")
	ok, _ := s.AreMutualFollowers(ctx, "a", "b")
	assert.False(t, ok, "one-way follow is not mutual")

	s.Follow("b", "a")
	ok, _ = s.AreMutualFollowers(ctx, "b", "a")
	assert.True(t, ok)

	s.Unfollow("a", "b")
	ok, _ = s.AreMutualFollowers(ctx, "a", "b")
	assert.False(t, ok)

	ok, err := s.AreMutualFollowers(ctx, "x", "y")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisOracle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	_, err := mr.SAdd("sg:following:a", "b")
	require.NoError(t, err)

	o := NewRedisOracle(client, "sg:")
	ctx := context.Background()

	ok, err := o.AreMutualFollowers(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = mr.SAdd("sg:following:b", "a")
	require.NoError(t, err)
	ok, err = o.AreMutualFollowers(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.SetError("LOADING")
	_, err = o.AreMutualFollowers(ctx, "a", "b")
	assert.Error(t, err)
}
