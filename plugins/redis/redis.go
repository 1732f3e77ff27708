package redis

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/miladsoleymani/brokerbridge/broker"
	"github.com/miladsoleymani/brokerbridge/core"
)

// Stream entry fields.
const (
	FieldKey   = "key"
	FieldValue = "value"
)

func init() {
	broker.Register("redis", func(ctx context.Context, cfg broker.Config) (core.Broker, error) {
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("brokerbridge/redis: an address is required")
		}
		opts := optsFromConfig(cfg)
		if cfg.ClientID != "" {
			opts = append([]Option{WithClientName(cfg.ClientID)}, opts...)
		}
		return New(ctx, cfg.Brokers[0], opts...)
	})
}

// Broker implements core.Broker on Redis streams or pub/sub channels.
//
// In stream mode every message becomes one entry holding the key, the value
// and one field per header. Pub/sub mode only carries the value, since
// PUBLISH has no room for metadata.
type Broker struct {
	client *goredis.Client
	opts   options

	mu     sync.Mutex
	closed bool
}

// New connects to addr (host:port) and verifies the connection with PING.
func New(ctx context.Context, addr string, fns ...Option) (*Broker, error) {
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}
	switch opts.mode {
	case ModeStream, ModePubSub:
	default:
		return nil, fmt.Errorf("brokerbridge/redis: unsupported mode %q", opts.mode)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		DB:           opts.db,
		Username:     opts.username,
		Password:     opts.password,
		ClientName:   opts.clientName,
		DialTimeout:  opts.dialTimeout,
		WriteTimeout: opts.writeTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("brokerbridge/redis: ping %q: %w", addr, err)
	}
	return &Broker{client: client, opts: opts}, nil
}

// Publish appends msg to the stream, or publishes it on the channel, named topic.
func (b *Broker) Publish(ctx context.Context, topic string, msg core.Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return core.ErrBrokerClosed
	}
	b.mu.Unlock()

	var err error
	switch b.opts.mode {
	case ModePubSub:
		err = b.client.Publish(ctx, topic, msg.Value()).Err()
	default:
		err = b.client.XAdd(ctx, streamArgs(topic, msg, b.opts.maxLen)).Err()
	}
	if err != nil {
		return fmt.Errorf("brokerbridge/redis: publish to %q: %w", topic, err)
	}
	return nil
}

func streamArgs(topic string, msg core.Message, maxLen int64) *goredis.XAddArgs {
	values := map[string]any{
		FieldKey:   msg.Key(),
		FieldValue: msg.Value(),
	}
	for k, v := range msg.Headers() {
		values[k] = v
	}
	args := &goredis.XAddArgs{
		Stream: topic,
		Values: values,
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return args
}

// Close closes the client connection pool.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("brokerbridge/redis: close: %w", err)
	}
	return nil
}

// optsFromConfig extracts options from broker.Config.Extra.
func optsFromConfig(cfg broker.Config) []Option {
	var opts []Option
	if v, ok := cfg.String("mode"); ok {
		opts = append(opts, WithMode(Mode(v)))
	}
	if v, ok := cfg.Int("maxlen"); ok {
		opts = append(opts, WithMaxLen(int64(v)))
	}
	if v, ok := cfg.Int("db"); ok {
		opts = append(opts, WithDB(v))
	}
	user, _ := cfg.String("username")
	if pass, ok := cfg.String("password"); ok {
		opts = append(opts, WithCredentials(user, pass))
	}
	if v, ok := cfg.Duration("dial_timeout"); ok {
		opts = append(opts, WithDialTimeout(v))
	}
	if v, ok := cfg.Duration("write_timeout"); ok {
		opts = append(opts, WithWriteTimeout(v))
	}
	return opts
}
