package rabbitmq

import "time"

// Option configures the RabbitMQ broker.
type Option func(*options)

type options struct {
	// Exchange settings
	exchange     string
	exchangeType string
	routingKey   string

	// declare creates the exchange, or the topic queue when no exchange is
	// set, when the broker is created.
	declare bool
	durable bool

	// Publishing settings
	confirm    bool
	persistent bool

	connectionName string
	dialTimeout    time.Duration
}

func defaults() options {
	return options{
		exchange:     "",       // default exchange
		exchangeType: "direct", // direct, fanout, topic, headers
		durable:      true,
		confirm:      true,
		persistent:   true,
		dialTimeout:  10 * time.Second,
	}
}

// WithExchange sets the exchange name and type.
func WithExchange(name, kind string) Option {
	return func(o *options) {
		o.exchange = name
		o.exchangeType = kind
	}
}

// WithRoutingKey overrides the routing key, which defaults to the topic.
func WithRoutingKey(key string) Option {
	return func(o *options) { o.routingKey = key }
}

// WithDeclare declares the exchange or queue on creation.
func WithDeclare(d bool) Option {
	return func(o *options) { o.declare = d }
}

// WithDurable controls whether declared exchanges and queues survive broker restart.
func WithDurable(d bool) Option {
	return func(o *options) { o.durable = d }
}

// WithConfirm puts the channel in confirm mode. Publish then waits for the
// broker ack.
func WithConfirm(c bool) Option {
	return func(o *options) { o.confirm = c }
}

// WithPersistent marks published messages as persistent.
func WithPersistent(p bool) Option {
	return func(o *options) { o.persistent = p }
}

// WithConnectionName sets the connection name shown in the management UI.
func WithConnectionName(name string) Option {
	return func(o *options) { o.connectionName = name }
}

// WithDialTimeout bounds the TCP dial and AMQP handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}
