package redis

import "time"

// Mode selects the Redis primitive messages are written to.
type Mode string

const (
	// ModeStream appends each message to a stream with XADD.
	ModeStream Mode = "stream"
	// ModePubSub publishes each message on a channel with PUBLISH.
	ModePubSub Mode = "pubsub"
)

// Option configures the Redis broker.
type Option func(*options)

type options struct {
	mode Mode

	// maxLen caps the stream length (approximate trimming). Zero keeps all
	// entries.
	maxLen int64

	db           int
	username     string
	password     string
	clientName   string
	dialTimeout  time.Duration
	writeTimeout time.Duration
}

func defaults() options {
	return options{
		mode:         ModeStream,
		dialTimeout:  5 * time.Second,
		writeTimeout: 3 * time.Second,
	}
}

// WithMode selects stream or pub/sub publishing.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithMaxLen caps the stream at roughly n entries.
func WithMaxLen(n int64) Option {
	return func(o *options) { o.maxLen = n }
}

// WithDB selects the logical database.
func WithDB(db int) Option {
	return func(o *options) { o.db = db }
}

// WithCredentials sets ACL username and password.
func WithCredentials(username, password string) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

// WithClientName sets the name reported by CLIENT LIST.
func WithClientName(name string) Option {
	return func(o *options) { o.clientName = name }
}

// WithDialTimeout bounds connection establishment.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithWriteTimeout bounds each command write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}
