package authevents

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/guardkit/pkg/guard"
	"github.com/dmitrymomot/guardkit/pkg/logger"
)

// Log writes guard events to a slog logger. Attempts are logged at debug,
// rejected credentials at warn and broken dependencies at error.
type Log struct {
	log *slog.Logger
}

// NewLog creates a logging sink. A nil logger discards events.
func NewLog(log *slog.Logger) *Log {
	if log == nil {
		log = logger.Discard()
	}
	return &Log{log: log}
}

func (l *Log) Emit(ctx context.Context, e guard.Event) {
	attrs := []any{
		logger.Event(e.Name),
		logger.Guard(e.Guard),
		logger.Driver(e.Driver),
	}
	if e.UserID != "" {
		attrs = append(attrs, logger.UserID(e.UserID))
	}
	if e.ViaRemember {
		attrs = append(attrs, slog.Bool("via_remember", true))
	}

	switch {
	case e.Name == guard.EventAttempted:
		l.log.DebugContext(ctx, "authentication attempted", attrs...)
	case e.Err != nil && errors.Is(e.Err, guard.ErrUnauthorized):
		l.log.WarnContext(ctx, "authentication rejected", attrs...)
	case e.Err != nil:
		l.log.ErrorContext(ctx, "authentication error", append(attrs, logger.Error(e.Err))...)
	default:
		l.log.InfoContext(ctx, e.Name, attrs...)
	}
}
