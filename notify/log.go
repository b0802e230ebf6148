package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes notifications to a logger instead of delivering them.
// It is meant for local development.
type LogNotifier struct {
	Logger *slog.Logger
	// IncludeCode adds the code to the log record. Never enable it outside
	// development.
	IncludeCode bool
}

func (n LogNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"to", msg.To, "kind", string(msg.Kind)}
	if n.IncludeCode {
		attrs = append(attrs, "code", msg.Code)
	}
	logger.InfoContext(ctx, "notification", attrs...)
	return nil
}
