package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/vango-dev/homectl/pkg/registry"
)

// Logging creates registry middleware that logs every activation. A nil
// logger uses slog.Default().
func Logging(logger *slog.Logger) registry.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return registry.MiddlewareFunc(func(ctx context.Context, ev registry.Event, next func(context.Context) error) error {
		start := time.Now()
		err := next(ctx)
		attrs := []any{
			"widget", ev.Target,
			"kind", ev.Kind,
			"duration", time.Since(start),
		}
		if err != nil {
			logger.WarnContext(ctx, "widget activation failed", append(attrs, "error", err)...)
			return err
		}
		logger.DebugContext(ctx, "widget activated", attrs...)
		return nil
	})
}
