package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/miladsoleymani/brokerbridge/core"
)

// Logging returns middleware that logs publish duration and errors.
// Successful publishes are logged at debug level, failures at error level.
func Logging(logger zerolog.Logger) core.Middleware {
	return func(next core.Handler) core.Handler {
		return func(ctx context.Context, fwd *core.Forward) error {
			start := time.Now()
			err := next(ctx, fwd)
			elapsed := time.Since(start)

			if err != nil {
				logger.Error().
					Err(err).
					Str("topic", fwd.Topic).
					Str("key", string(fwd.Record.Key())).
					Str("kind", fwd.Event.Message.Kind.String()).
					Str("source", fwd.Event.Source.String()).
					Dur("elapsed", elapsed).
					Msg("failed to publish message")
			} else {
				logger.Debug().
					Str("topic", fwd.Topic).
					Str("key", string(fwd.Record.Key())).
					Str("kind", fwd.Event.Message.Kind.String()).
					Int("bytes", len(fwd.Record.Value())).
					Dur("elapsed", elapsed).
					Msg("message published")
			}
			return err
		}
	}
}
