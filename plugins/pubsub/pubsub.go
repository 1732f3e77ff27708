// Package pubsub publishes bridged messages to Google Cloud Pub/Sub.
//
// The first broker address is the GCP project id. Headers become message
// attributes.
package pubsub

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/miladsoleymani/brokerbridge/broker"
	"github.com/miladsoleymani/brokerbridge/core"
)

// AttributeKey carries the record key when ordering is disabled.
const AttributeKey = "bridge-key"

func init() {
	broker.Register("pubsub", func(ctx context.Context, cfg broker.Config) (core.Broker, error) {
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("brokerbridge/pubsub: a project id is required")
		}
		b, err := New(ctx, cfg.Brokers[0], optsFromConfig(cfg)...)
		if err != nil {
			return nil, err
		}
		if err := b.verify(ctx, cfg.Topic); err != nil {
			_ = b.Close()
			return nil, err
		}
		return b, nil
	})
}

// Broker implements core.Broker for Google Cloud Pub/Sub.
//
// Topic handles are created on first use and kept until Close. Publish
// waits for the server-assigned message id.
type Broker struct {
	client *pubsub.Client
	opts   options

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
	closed bool
}

// New creates a Pub/Sub client for projectID.
func New(ctx context.Context, projectID string, fns ...Option) (*Broker, error) {
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}

	clientOpts := opts.clientOptions
	if opts.emulator != "" {
		clientOpts = append(clientOpts,
			option.WithEndpoint(opts.emulator),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			option.WithoutAuthentication(),
		)
	}

	client, err := pubsub.NewClient(ctx, projectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("brokerbridge/pubsub: new client for %q: %w", projectID, err)
	}
	return &Broker{client: client, opts: opts, topics: make(map[string]*pubsub.Topic)}, nil
}

func (b *Broker) verify(ctx context.Context, topic string) error {
	if !b.opts.verifyTopic {
		return nil
	}
	ok, err := b.client.Topic(topic).Exists(ctx)
	if err != nil {
		return fmt.Errorf("brokerbridge/pubsub: check topic %q: %w", topic, err)
	}
	if !ok {
		return fmt.Errorf("brokerbridge/pubsub: topic %q does not exist", topic)
	}
	return nil
}

func (b *Broker) topic(id string) (*pubsub.Topic, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, core.ErrBrokerClosed
	}
	if t, ok := b.topics[id]; ok {
		return t, nil
	}
	t := b.client.Topic(id)
	t.EnableMessageOrdering = b.opts.ordering
	t.PublishSettings.DelayThreshold = b.opts.delayThreshold
	t.PublishSettings.CountThreshold = b.opts.countThreshold
	b.topics[id] = t
	return t, nil
}

// Publish sends msg to topic and waits for the publish result.
func (b *Broker) Publish(ctx context.Context, topic string, msg core.Message) error {
	t, err := b.topic(topic)
	if err != nil {
		return err
	}

	pm := b.message(msg)
	if _, err := t.Publish(ctx, pm).Get(ctx); err != nil {
		if pm.OrderingKey != "" {
			t.ResumePublish(pm.OrderingKey)
		}
		return fmt.Errorf("brokerbridge/pubsub: publish to %q: %w", topic, err)
	}
	return nil
}

func (b *Broker) message(msg core.Message) *pubsub.Message {
	attrs := make(map[string]string, len(msg.Headers())+1)
	for k, v := range msg.Headers() {
		attrs[k] = v
	}
	pm := &pubsub.Message{Data: msg.Value(), Attributes: attrs}

	key := string(msg.Key())
	if key == "" {
		return pm
	}
	if b.opts.ordering {
		pm.OrderingKey = key
	} else {
		attrs[AttributeKey] = key
	}
	return pm
}

// Close flushes every topic and closes the client.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, t := range b.topics {
		t.Stop()
	}
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("brokerbridge/pubsub: close: %w", err)
	}
	return nil
}

// optsFromConfig extracts options from broker.Config.Extra.
func optsFromConfig(cfg broker.Config) []Option {
	var opts []Option
	if v, ok := cfg.Bool("ordering"); ok {
		opts = append(opts, WithOrdering(v))
	}
	if v, ok := cfg.String("emulator"); ok {
		opts = append(opts, WithEmulator(v))
	}
	if v, ok := cfg.Bool("verify_topic"); ok {
		opts = append(opts, WithVerifyTopic(v))
	}
	delay, hasDelay := cfg.Duration("batch_delay")
	count, hasCount := cfg.Int("batch_count")
	if hasDelay || hasCount {
		d := defaults()
		if !hasDelay {
			delay = d.delayThreshold
		}
		if !hasCount {
			count = d.countThreshold
		}
		opts = append(opts, WithBatching(delay, count))
	}
	return opts
}
