package eventbus

import (
	"context"
	"log/slog"

	"github.com/cdrslab/fundam-builder/internal/event"
)

// LogConsumer logs every builder event.
type LogConsumer struct {
	log *slog.Logger
}

func NewLogConsumer(log *slog.Logger) *LogConsumer {
	if log == nil {
		log = slog.Default()
	}
	return &LogConsumer{log: log}
}

func (c *LogConsumer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	c.log.LogAttrs(ctx, slog.LevelDebug, evt.Summary,
		slog.String("event", evt.EventType),
		slog.String("session_id", evt.SessionID),
		slog.String("page_id", evt.PageID),
		slog.Any("nodes", evt.NodeIDs),
		slog.Uint64("version", evt.Version),
	)
	return nil
}
