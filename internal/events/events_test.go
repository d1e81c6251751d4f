package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"day.glimpse/internal/models"
)

type failing struct{ err error }

func (f failing) Publish(context.Context, models.Event) error { return f.err }

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	id := models.TokenID{0xab}
	require.NoError(t, p.Publish(context.Background(), models.Event{
		Kind:    models.EventTokenMinted,
		Profile: "alice",
		Minter:  "bob",
		TokenID: &id,
		At:      time.Unix(10, 0),
	}))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "token_minted", line["kind"])
	assert.Equal(t, "bob", line["minter"])
	assert.Equal(t, id.String(), line["token_id"])
}

func TestFanoutJoinsErrors(t *testing.T) {
	e1, e2 := errors.New("one"), errors.New("two")
	err := Fanout{Discard{}, failing{e1}, failing{e2}}.Publish(context.Background(), models.Event{})
	require.Error(t, err)
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestStreamPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	p := NewStreamPublisher(client, "glimpse:events", 100)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, models.Event{
		Kind:        models.EventGlimpseCreated,
		Profile:     "alice",
		StorageHash: []byte("ipfs://QmTest123"),
		IsPrivate:   true,
		At:          time.Unix(1_700_000_000, 0),
	}))

	msgs, err := client.XRange(ctx, "glimpse:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "glimpse_created", msgs[0].Values["kind"])
	assert.Equal(t, "alice", msgs[0].Values["profile"])
	assert.Equal(t, "true", msgs[0].Values["is_private"])
	assert.Equal(t, "1700000000", msgs[0].Values["at"])
}
