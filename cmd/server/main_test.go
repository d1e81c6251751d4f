package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"day.glimpse/config"
)

func TestInitStoreReleasesSharedClient(t *testing.T) {
	for _, storeType := range []string{"memory", "redis"} {
		t.Run(storeType, func(t *testing.T) {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

			cfg := config.Default()
			cfg.Store.Type = storeType
			cfg.Oracle.Type = "redis"

			_, closeStore := initStore(cfg, rdb)
			require.NoError(t, rdb.Ping(context.Background()).Err())

			closeStore()
			require.ErrorIs(t, rdb.Ping(context.Background()).Err(), redis.ErrClosed)
		})
	}
}
