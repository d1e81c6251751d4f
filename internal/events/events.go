// Package events publishes the notifications emitted after registry and
// ledger mutations commit.
package events

import (
	"context"
	"errors"
	"log/slog"

	"day.glimpse/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, e models.Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, models.Event) error { return nil }

// LogPublisher writes each event as a structured log line.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e models.Event) error {
	attrs := []slog.Attr{
		slog.String("kind", string(e.Kind)),
		slog.String("profile", string(e.Profile)),
		slog.Time("at", e.At),
	}
	if e.Minter != "" {
		attrs = append(attrs, slog.String("minter", string(e.Minter)))
	}
	if e.TokenID != nil {
		attrs = append(attrs, slog.String("token_id", e.TokenID.String()))
	}
	if e.Kind == models.EventGlimpseCreated {
		attrs = append(attrs, slog.Bool("is_private", e.IsPrivate))
	}
	p.logger.LogAttrs(ctx, slog.LevelInfo, "event", attrs...)
	return nil
}

// Fanout delivers to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e models.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
