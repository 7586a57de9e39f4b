package notify

import (
	"context"
	"log/slog"
)

// LogPublisher только пишет событие в лог. Используется локально и по умолчанию
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Info("event published",
		slog.String("event_id", ev.ID),
		slog.String("type", ev.Type),
		slog.Int64("userID", ev.UserID),
		slog.Int64("orderID", ev.OrderID),
		slog.String("amount", ev.Amount.StringFixed(2)),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
