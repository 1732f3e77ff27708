package pubsub

import (
	"time"

	"google.golang.org/api/option"
)

// Option configures the Google Cloud Pub/Sub broker.
type Option func(*options)

type options struct {
	// ordering enables message ordering; the record key becomes the
	// ordering key.
	ordering bool

	// emulator is the host:port of a Pub/Sub emulator. It disables
	// authentication and TLS.
	emulator string

	// verifyTopic checks on creation that the topic exists.
	verifyTopic bool

	delayThreshold time.Duration
	countThreshold int

	clientOptions []option.ClientOption
}

func defaults() options {
	return options{
		delayThreshold: 10 * time.Millisecond,
		countThreshold: 100,
	}
}

// WithOrdering publishes with the record key as ordering key.
func WithOrdering(enabled bool) Option {
	return func(o *options) { o.ordering = enabled }
}

// WithEmulator connects to a Pub/Sub emulator at hostport.
func WithEmulator(hostport string) Option {
	return func(o *options) { o.emulator = hostport }
}

// WithVerifyTopic fails creation when the topic does not exist.
func WithVerifyTopic(v bool) Option {
	return func(o *options) { o.verifyTopic = v }
}

// WithBatching sets the publisher batching thresholds.
func WithBatching(delay time.Duration, count int) Option {
	return func(o *options) {
		o.delayThreshold = delay
		o.countThreshold = count
	}
}

// WithClientOptions passes extra options to the underlying client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(o *options) { o.clientOptions = append(o.clientOptions, opts...) }
}
