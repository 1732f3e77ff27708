package middleware

import (
	"context"
	"time"

	"github.com/miladsoleymani/brokerbridge/core"
)

// MetricsCollector is the interface that metrics backends must implement.
// This keeps the middleware decoupled from any specific metrics library.
type MetricsCollector interface {
	// MessageForwarded records one publish attempt. err is nil on success.
	MessageForwarded(topic string, kind core.MessageKind, duration time.Duration, err error)
}

// Metrics returns middleware that reports publish metrics to the given collector.
func Metrics(collector MetricsCollector) core.Middleware {
	return func(next core.Handler) core.Handler {
		return func(ctx context.Context, fwd *core.Forward) error {
			start := time.Now()
			err := next(ctx, fwd)
			collector.MessageForwarded(fwd.Topic, fwd.Event.Message.Kind, time.Since(start), err)
			return err
		}
	}
}
