package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"day.glimpse/internal/models"
)

var _ Store = (*RedisStore)(nil)

const (
	holderScanSize = 64

	minUpdateBackoff = time.Millisecond
	maxUpdateBackoff = 50 * time.Millisecond
)

type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStoreFromClient takes ownership of client; Close closes it.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) GetGlimpse(ctx context.Context, profile models.Identity) (*models.Glimpse, error) {
	data, err := r.client.Get(ctx, r.glimpseKey(profile)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get glimpse: %w", err)
	}
	return decode[models.Glimpse](data)
}

// UpdateGlimpse uses WATCH/MULTI so concurrent writers to one profile retry
// instead of interleaving. A lost race is retried with jittered backoff until
// it commits or ctx is done.
func (r *RedisStore) UpdateGlimpse(ctx context.Context, profile models.Identity, fn UpdateFunc) (*models.Glimpse, error) {
	key := r.glimpseKey(profile)
	var result *models.Glimpse

	txf := func(tx *redis.Tx) error {
		var current *models.Glimpse
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if current, err = decode[models.Glimpse](data); err != nil {
				return err
			}
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		newData, err := encode(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newData, 0)
			return nil
		})
		if err == nil {
			result = next.Clone()
		}
		return err
	}

	backoff := minUpdateBackoff
	for {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}

		wait := backoff/2 + rand.N(backoff/2+1)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("update glimpse %s: %w", profile, ctx.Err())
		case <-time.After(wait):
		}
		backoff = min(backoff*2, maxUpdateBackoff)
	}
}

// createTokenScript inserts the token and its holder index entry in one step.
var createTokenScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[1])
	redis.call('HSET', KEYS[2], ARGV[2], ARGV[3])
	return 1
`)

func (r *RedisStore) CreateToken(ctx context.Context, token *models.AccessToken) error {
	data, err := encode(token)
	if err != nil {
		return err
	}

	created, err := createTokenScript.Run(ctx, r.client,
		[]string{r.tokenKey(token.ID), r.holderKey(token.Holder)},
		data, token.ID.String(), string(token.Profile),
	).Int()
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	if created == 0 {
		return ErrConflict
	}
	return nil
}

func (r *RedisStore) GetToken(ctx context.Context, id models.TokenID) (*models.AccessToken, error) {
	data, err := r.client.Get(ctx, r.tokenKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return decode[models.AccessToken](data)
}

// HolderTokens walks the holder hash with HSCAN, one page at a time.
func (r *RedisStore) HolderTokens(ctx context.Context, holder models.Identity) iter.Seq2[models.TokenRef, error] {
	key := r.holderKey(holder)
	return func(yield func(models.TokenRef, error) bool) {
		var cursor uint64
		for {
			kvs, next, err := r.client.HScan(ctx, key, cursor, "", holderScanSize).Result()
			if err != nil {
				yield(models.TokenRef{}, fmt.Errorf("scan holder tokens: %w", err))
				return
			}
			for i := 0; i+1 < len(kvs); i += 2 {
				id, err := models.ParseTokenID(kvs[i])
				if err != nil {
					yield(models.TokenRef{}, fmt.Errorf("holder index entry %q: %w", kvs[i], err))
					return
				}
				if !yield(models.TokenRef{ID: id, Profile: models.Identity(kvs[i+1])}, nil) {
					return
				}
			}
			if next == 0 {
				return
			}
			cursor = next
		}
	}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Helpers

func (r *RedisStore) glimpseKey(profile models.Identity) string {
	return r.prefix + "glimpse:" + string(profile)
}

func (r *RedisStore) tokenKey(id models.TokenID) string {
	return r.prefix + "token:" + id.String()
}

func (r *RedisStore) holderKey(holder models.Identity) string {
	return r.prefix + "holder:" + string(holder)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode[T any](data []byte) (*T, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}
