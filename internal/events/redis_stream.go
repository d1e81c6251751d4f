package events

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"day.glimpse/internal/models"
)

// StreamPublisher appends events to a Redis stream for downstream consumers
// (indexers, notification workers).
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamPublisher) Publish(ctx context.Context, e models.Event) error {
	values := map[string]any{
		"kind":    string(e.Kind),
		"profile": string(e.Profile),
		"at":      strconv.FormatInt(e.At.Unix(), 10),
	}
	if e.Minter != "" {
		values["minter"] = string(e.Minter)
	}
	if len(e.StorageHash) > 0 {
		values["storage_hash"] = base64.StdEncoding.EncodeToString(e.StorageHash)
	}
	if e.Kind == models.EventGlimpseCreated {
		values["is_private"] = strconv.FormatBool(e.IsPrivate)
	}
	if e.TokenID != nil {
		values["token_id"] = e.TokenID.String()
	}

	args := &redis.XAddArgs{Stream: p.stream, Values: values}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}
