package middleware

import (
	"context"
	"log/slog"
	"time"

	"carshare/internal/app/commands"
)

// Logging writes one line per dispatched command.
func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			attrs := []any{
				slog.String("command", cmd.Key()),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.InfoContext(ctx, "command rejected", append(attrs, slog.Any("err", err))...)
				return nil, err
			}
			logger.DebugContext(ctx, "command handled", attrs...)
			return res, nil
		})
	}
}
