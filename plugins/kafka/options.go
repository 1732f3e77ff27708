package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// Option configures the Kafka broker.
type Option func(*options)

type options struct {
	balancer     kafka.Balancer
	batchSize    int
	batchTimeout time.Duration
	writeTimeout time.Duration
	async        bool
	requiredAcks kafka.RequiredAcks
	compression  kafka.Compression

	// probeTimeout > 0 dials the cluster once in New.
	probeTimeout time.Duration

	dialer   *kafka.Dialer
	clientID string
}

func defaults() options {
	return options{
		balancer:     &kafka.Hash{},
		batchSize:    1,
		batchTimeout: 10 * time.Millisecond,
		writeTimeout: 10 * time.Second,
		requiredAcks: kafka.RequireAll,
	}
}

// WithBalancer sets the partition balancer for the writer.
func WithBalancer(b kafka.Balancer) Option {
	return func(o *options) { o.balancer = b }
}

// WithBatchSize sets the maximum batch size for writes.
func WithBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

// WithBatchTimeout sets how long an incomplete batch waits before it is sent.
func WithBatchTimeout(d time.Duration) Option {
	return func(o *options) { o.batchTimeout = d }
}

// WithWriteTimeout bounds a single write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// WithAsync enables asynchronous writes. Publish then never reports
// delivery errors.
func WithAsync(async bool) Option {
	return func(o *options) { o.async = async }
}

// WithRequiredAcks sets the acknowledgement level requested from the cluster.
func WithRequiredAcks(acks kafka.RequiredAcks) Option {
	return func(o *options) { o.requiredAcks = acks }
}

// WithCompression sets the compression codec of produced batches.
func WithCompression(c kafka.Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithProbe makes New dial the cluster, failing if no broker answers
// within d.
func WithProbe(d time.Duration) Option {
	return func(o *options) { o.probeTimeout = d }
}

// WithDialer sets a custom dialer for TLS/SASL connections.
func WithDialer(d *kafka.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithClientID sets the client id sent with every request.
func WithClientID(id string) Option {
	return func(o *options) { o.clientID = id }
}
