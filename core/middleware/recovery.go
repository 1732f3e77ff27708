package middleware

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/miladsoleymani/brokerbridge/core"
)

// Recovery returns middleware that recovers from panics further down the
// chain, logs the stack trace, and returns the panic as an error.
func Recovery(logger zerolog.Logger) core.Middleware {
	return func(next core.Handler) core.Handler {
		return func(ctx context.Context, fwd *core.Forward) (err error) {
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					logger.Error().
						Str("topic", fwd.Topic).
						Str("panic", fmt.Sprint(r)).
						Bytes("stack", buf[:n]).
						Msg("panic recovered")
					err = fmt.Errorf("brokerbridge: panic recovered: %v", r)
				}
			}()
			return next(ctx, fwd)
		}
	}
}

// Chain wraps h with mws. Given [A, B, C], the call order is A -> B -> C -> h.
func Chain(h core.Handler, mws ...core.Middleware) core.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
