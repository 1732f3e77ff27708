package mqtt

import "time"

// Option configures the MQTT broker.
type Option func(*options)

type options struct {
	clientID       string
	username       string
	password       string
	qos            byte
	retained       bool
	connectTimeout time.Duration
	publishTimeout time.Duration
}

func defaults() options {
	return options{
		qos:            1,
		connectTimeout: 10 * time.Second,
		publishTimeout: 10 * time.Second,
	}
}

// WithClientID sets the MQTT client identifier.
func WithClientID(id string) Option {
	return func(o *options) { o.clientID = id }
}

// WithCredentials sets username and password.
func WithCredentials(username, password string) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

// WithQoS sets the publish QoS level (0, 1 or 2).
func WithQoS(qos byte) Option {
	return func(o *options) { o.qos = qos }
}

// WithRetained sets the retain flag on published messages.
func WithRetained(r bool) Option {
	return func(o *options) { o.retained = r }
}

// WithConnectTimeout bounds the initial connection.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithPublishTimeout bounds the wait for a publish acknowledgement when the
// publish context carries no deadline.
func WithPublishTimeout(d time.Duration) Option {
	return func(o *options) { o.publishTimeout = d }
}
