package dispatcher

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/logger"
)

// Notification summarizes a dispatched outcome for delivery to an
// operations channel: chat webhook, email digest, audit trail.
type Notification struct {
	Outcome        Outcome
	Message        string
	OrderID        *uuid.UUID
	InstallmentIDs []uuid.UUID
}

// Notifier delivers outcome notifications. Delivery is best effort; errors
// are logged by the dispatcher and never fail the dispatch.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, n Notification) error { return nil }

// LogNotifier writes notifications to a structured logger. Failures land
// at error level, successes at info.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier over the given logger, falling back to
// slog.Default when nil.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (ln *LogNotifier) Notify(ctx context.Context, n Notification) error {
	level := slog.LevelInfo
	if n.Outcome != OutcomeSuccess {
		level = slog.LevelError
	}
	ln.log.LogAttrs(ctx, level, n.Message,
		slog.String("outcome", string(n.Outcome)),
		logger.OrderID(n.OrderID),
		logger.InstallmentIDs(n.InstallmentIDs),
	)
	return nil
}
