// Package service implements the application's use cases on top of the
// domain store and cache interfaces.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/calebzhan/fflbot/internal/domain"
)

// eventChannel is the pub/sub channel all league events fan out on.
const eventChannel = "events"

// activityStream is the durable stream mirroring every published event.
const activityStream = "stream:activity"

// publishEvent serializes an event and pushes it to both the pub/sub channel
// and the durable activity stream. Failures are logged, never propagated;
// events are advisory and must not fail the operation that produced them.
func publishEvent(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, ev domain.Event) {
	if bus == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		logger.WarnContext(ctx, "event marshal failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := bus.Publish(ctx, eventChannel, payload); err != nil {
		logger.WarnContext(ctx, "event publish failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
	if err := bus.StreamAppend(ctx, activityStream, payload); err != nil {
		logger.WarnContext(ctx, "event stream append failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}
