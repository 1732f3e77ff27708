package nats

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/miladsoleymani/brokerbridge/broker"
	"github.com/miladsoleymani/brokerbridge/core"
)

// HeaderKey carries the record key, which NATS has no native slot for.
const HeaderKey = "Bridge-Key"

func init() {
	broker.Register("nats", func(ctx context.Context, cfg broker.Config) (core.Broker, error) {
		opts := optsFromConfig(cfg)
		if cfg.ClientID != "" {
			opts = append([]Option{WithName(cfg.ClientID)}, opts...)
		}
		return New(ctx, cfg.Brokers, opts...)
	})
}

// Broker implements core.Broker for NATS.
//
// One connection per Broker. Core NATS publishes are followed by a flush so
// that a nil error means the server received the message; with JetStream the
// publish waits for the stream ack and the bridge message id is used for
// server-side deduplication.
type Broker struct {
	conn *nats.Conn
	js   jetstream.JetStream
	opts options

	mu     sync.Mutex
	closed bool
}

// New creates a NATS Broker. urls are standard NATS URLs (nats://host:port).
// ctx bounds the initial connection only; reconnects are not tied to it.
func New(ctx context.Context, urls []string, fns ...Option) (*Broker, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("brokerbridge/nats: at least one server URL is required")
	}
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}

	dialer := &ctxDialer{ctx: ctx, timeout: opts.connectTimeout}
	natsOpts := []nats.Option{nats.Timeout(opts.connectTimeout), nats.SetCustomDialer(dialer)}
	if opts.name != "" {
		natsOpts = append(natsOpts, nats.Name(opts.name))
	}

	url := strings.Join(urls, ",")
	nc, err := nats.Connect(url, natsOpts...)
	dialer.detach()
	if err != nil {
		return nil, fmt.Errorf("brokerbridge/nats: connect to %q: %w", url, err)
	}
	if err := ctx.Err(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("brokerbridge/nats: connect to %q: %w", url, err)
	}

	b := &Broker{conn: nc, opts: opts}
	if opts.jetStream {
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("brokerbridge/nats: init jetstream: %w", err)
		}
		b.js = js
	}
	return b, nil
}

// Publish sends a message to the specified subject.
func (b *Broker) Publish(ctx context.Context, topic string, msg core.Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return core.ErrBrokerClosed
	}
	b.mu.Unlock()

	nm := &nats.Msg{
		Subject: topic,
		Data:    msg.Value(),
		Header:  toHeader(msg),
	}

	if b.js != nil {
		if _, err := b.js.PublishMsg(ctx, nm); err != nil {
			return fmt.Errorf("brokerbridge/nats: publish to %q: %w", topic, err)
		}
		return nil
	}

	if err := b.conn.PublishMsg(nm); err != nil {
		return fmt.Errorf("brokerbridge/nats: publish to %q: %w", topic, err)
	}
	if !b.opts.flush {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.flushTimeout)
		defer cancel()
	}
	if err := b.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("brokerbridge/nats: flush %q: %w", topic, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return fmt.Errorf("brokerbridge/nats: drain: %w", err)
	}
	return nil
}

func toHeader(msg core.Message) nats.Header {
	h := nats.Header{}
	for k, v := range msg.Headers() {
		h.Set(k, v)
	}
	if key := msg.Key(); len(key) > 0 {
		h.Set(HeaderKey, string(key))
	}
	if id := msg.Headers()[core.HeaderMessageID]; id != "" {
		h.Set(nats.MsgIdHdr, id)
	}
	return h
}

// optsFromConfig extracts options from broker.Config.Extra.
func optsFromConfig(cfg broker.Config) []Option {
	var opts []Option
	if v, ok := cfg.Bool("jetstream"); ok {
		opts = append(opts, WithJetStream(v))
	}
	if v, ok := cfg.Bool("flush"); ok {
		opts = append(opts, WithFlush(v))
	}
	if v, ok := cfg.Duration("connect_timeout"); ok {
		opts = append(opts, WithConnectTimeout(v))
	}
	if v, ok := cfg.Duration("flush_timeout"); ok {
		opts = append(opts, WithFlushTimeout(v))
	}
	return opts
}

// ctxDialer dials with the context given to New until detach is called,
// and with a background context afterwards.
type ctxDialer struct {
	timeout time.Duration

	mu  sync.Mutex
	ctx context.Context
}

func (d *ctxDialer) Dial(network, address string) (net.Conn, error) {
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()
	nd := net.Dialer{Timeout: d.timeout}
	return nd.DialContext(ctx, network, address)
}

func (d *ctxDialer) detach() {
	d.mu.Lock()
	d.ctx = context.Background()
	d.mu.Unlock()
}
