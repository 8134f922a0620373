package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher emits trust events to the structured log stream. The
// forum's event bus consumes the same JSON lines; swapping in a broker
// publisher only requires implementing ports.EventPublisher.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	p.logger.InfoContext(ctx, "published event",
		"module", "events",
		"layer", "adapter",
		"event_type", eventType,
		"payload", string(payload),
	)
	return nil
}
