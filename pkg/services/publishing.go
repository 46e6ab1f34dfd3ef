package services

import (
	"context"
	"log/slog"

	"github.com/dukex/opsplan/pkg/eventbus"
)

// publisher sends change events after a write has been committed. Delivery is
// best effort: a failed publish is logged and never undoes the write.
type publisher struct {
	bus    eventbus.EventPublisher
	logger *slog.Logger
}

func (p publisher) publish(ctx context.Context, key string, event eventbus.Event) {
	if p.bus == nil {
		return
	}

	if err := p.bus.Publish(ctx, key, event); err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "key", key, "error", err)
	}
}
