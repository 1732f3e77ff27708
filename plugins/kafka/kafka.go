package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/miladsoleymani/brokerbridge/broker"
	"github.com/miladsoleymani/brokerbridge/core"
)

func init() {
	broker.Register("kafka", func(ctx context.Context, cfg broker.Config) (core.Broker, error) {
		opts := optsFromConfig(cfg)
		if cfg.ClientID != "" {
			opts = append([]Option{WithClientID(cfg.ClientID)}, opts...)
		}
		d, err := dialerFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		if d != nil {
			opts = append(opts, WithDialer(d))
		}
		return New(ctx, cfg.Brokers, opts...)
	})
}

// Broker implements core.Broker for Apache Kafka using segmentio/kafka-go.
//
// One kafka.Writer per Broker; the topic travels on every message. Writes
// are synchronous by default so a Publish error means the record was not
// acknowledged. Close flushes the writer.
type Broker struct {
	brokers []string
	opts    options

	writer *kafka.Writer
	mu     sync.Mutex
	closed bool
}

// New creates a Kafka Broker.
func New(ctx context.Context, brokers []string, fns ...Option) (*Broker, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokerbridge/kafka: at least one broker address is required")
	}
	for _, addr := range brokers {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return nil, fmt.Errorf("brokerbridge/kafka: invalid broker address %q: %w", addr, err)
		}
	}

	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}

	if opts.probeTimeout > 0 {
		if err := probe(ctx, brokers, opts); err != nil {
			return nil, err
		}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     opts.balancer,
		BatchSize:    opts.batchSize,
		BatchTimeout: opts.batchTimeout,
		WriteTimeout: opts.writeTimeout,
		Async:        opts.async,
		RequiredAcks: opts.requiredAcks,
		Compression:  opts.compression,
	}
	if opts.dialer != nil || opts.clientID != "" {
		t := &kafka.Transport{ClientID: opts.clientID}
		if opts.dialer != nil {
			t.TLS = opts.dialer.TLS
			t.SASL = opts.dialer.SASLMechanism
		}
		w.Transport = t
	}

	return &Broker{
		brokers: brokers,
		opts:    opts,
		writer:  w,
	}, nil
}

// probe succeeds as soon as one broker accepts a connection.
func probe(ctx context.Context, brokers []string, opts options) error {
	ctx, cancel := context.WithTimeout(ctx, opts.probeTimeout)
	defer cancel()

	dialer := opts.dialer
	if dialer == nil {
		dialer = &kafka.Dialer{}
	}
	var errs []error
	for _, addr := range brokers {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn.Close()
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("brokerbridge/kafka: no broker reachable: %w", errors.Join(errs...))
}

// Publish sends a message to the specified topic.
func (b *Broker) Publish(ctx context.Context, topic string, msg core.Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return core.ErrBrokerClosed
	}
	b.mu.Unlock()

	km := kafka.Message{
		Topic:   topic,
		Key:     msg.Key(),
		Value:   msg.Value(),
		Headers: toHeaders(msg.Headers()),
	}
	if err := b.writer.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("brokerbridge/kafka: publish to %q: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	if err := b.writer.Close(); err != nil {
		return fmt.Errorf("brokerbridge/kafka: close writer: %w", err)
	}
	return nil
}

// toHeaders converts a string map to Kafka headers.
func toHeaders(h map[string]string) []kafka.Header {
	if len(h) == 0 {
		return nil
	}
	headers := make([]kafka.Header, 0, len(h))
	for k, v := range h {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

// optsFromConfig extracts options from the broker.Config.Extra map.
func optsFromConfig(cfg broker.Config) []Option {
	var opts []Option
	if v, ok := cfg.Bool("async"); ok {
		opts = append(opts, WithAsync(v))
	}
	if v, ok := cfg.Int("batch_size"); ok && v > 0 {
		opts = append(opts, WithBatchSize(v))
	}
	if v, ok := cfg.Duration("batch_timeout"); ok {
		opts = append(opts, WithBatchTimeout(v))
	}
	if v, ok := cfg.Duration("write_timeout"); ok {
		opts = append(opts, WithWriteTimeout(v))
	}
	if v, ok := cfg.Duration("probe_timeout"); ok {
		opts = append(opts, WithProbe(v))
	}
	if v, ok := cfg.String("balancer"); ok {
		switch v {
		case "hash":
			opts = append(opts, WithBalancer(&kafka.Hash{}))
		case "least_bytes":
			opts = append(opts, WithBalancer(&kafka.LeastBytes{}))
		case "round_robin":
			opts = append(opts, WithBalancer(&kafka.RoundRobin{}))
		}
	}
	if v, ok := cfg.String("acks"); ok {
		switch v {
		case "none":
			opts = append(opts, WithRequiredAcks(kafka.RequireNone))
		case "one":
			opts = append(opts, WithRequiredAcks(kafka.RequireOne))
		case "all":
			opts = append(opts, WithRequiredAcks(kafka.RequireAll))
		}
	}
	if v, ok := cfg.String("compression"); ok {
		switch v {
		case "gzip":
			opts = append(opts, WithCompression(kafka.Gzip))
		case "snappy":
			opts = append(opts, WithCompression(kafka.Snappy))
		case "lz4":
			opts = append(opts, WithCompression(kafka.Lz4))
		case "zstd":
			opts = append(opts, WithCompression(kafka.Zstd))
		}
	}
	return opts
}

// dialerFromConfig builds a dialer from the tls and sasl_* Extra keys. It
// returns nil when neither TLS nor SASL is requested.
func dialerFromConfig(cfg broker.Config) (*kafka.Dialer, error) {
	useTLS, _ := cfg.Bool("tls")
	mech, hasSASL := cfg.String("sasl_mechanism")
	if !useTLS && !hasSASL {
		return nil, nil
	}

	d := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	if useTLS {
		skip, _ := cfg.Bool("tls_insecure_skip_verify")
		d.TLS = &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: skip}
	}
	if !hasSASL {
		return d, nil
	}

	user, _ := cfg.String("sasl_username")
	pass, _ := cfg.String("sasl_password")
	var err error
	switch strings.ToLower(mech) {
	case "plain":
		d.SASLMechanism = plain.Mechanism{Username: user, Password: pass}
	case "scram-sha-256":
		d.SASLMechanism, err = scram.Mechanism(scram.SHA256, user, pass)
	case "scram-sha-512":
		d.SASLMechanism, err = scram.Mechanism(scram.SHA512, user, pass)
	default:
		return nil, fmt.Errorf("brokerbridge/kafka: unsupported sasl mechanism %q", mech)
	}
	if err != nil {
		return nil, fmt.Errorf("brokerbridge/kafka: sasl %s: %w", mech, err)
	}
	return d, nil
}
