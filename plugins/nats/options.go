package nats

import "time"

// Option configures the NATS broker.
type Option func(*options)

type options struct {
	name           string
	connectTimeout time.Duration

	// jetStream publishes through JetStream and waits for the stream ack.
	jetStream bool

	// flush waits for the server to process every core NATS publish.
	flush        bool
	flushTimeout time.Duration
}

func defaults() options {
	return options{
		connectTimeout: 5 * time.Second,
		flush:          true,
		flushTimeout:   5 * time.Second,
	}
}

// WithName sets the connection name reported to the server.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithConnectTimeout bounds the initial connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithJetStream switches publishing to JetStream. The subject must be
// bound to a stream.
func WithJetStream(enabled bool) Option {
	return func(o *options) { o.jetStream = enabled }
}

// WithFlush controls whether core NATS publishes wait for a server round trip.
func WithFlush(enabled bool) Option {
	return func(o *options) { o.flush = enabled }
}

// WithFlushTimeout bounds the flush round trip when the publish context
// carries no deadline.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *options) { o.flushTimeout = d }
}
