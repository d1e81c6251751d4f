package oracle

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"day.glimpse/internal/models"
)

var _ FollowerOracle = (*RedisOracle)(nil)

// RedisOracle reads follow edges maintained by the social-graph service as
// sets: <prefix>following:<a> contains b when a follows b.
type RedisOracle struct {
	client *redis.Client
	prefix string
}

func NewRedisOracle(client *redis.Client, prefix string) *RedisOracle {
	return &RedisOracle{client: client, prefix: prefix}
}

func (r *RedisOracle) AreMutualFollowers(ctx context.Context, a, b models.Identity) (bool, error) {
	var ab, ba *redis.BoolCmd
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		ab = pipe.SIsMember(ctx, r.followingKey(a), string(b))
		ba = pipe.SIsMember(ctx, r.followingKey(b), string(a))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("query follow edges: %w", err)
	}
	return ab.Val() && ba.Val(), nil
}

func (r *RedisOracle) followingKey(id models.Identity) string {
	return r.prefix + "following:" + string(id)
}
