package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/miladsoleymani/brokerbridge/broker"
	"github.com/miladsoleymani/brokerbridge/core"
)

// disconnectQuiesce is how long Close lets in-flight work finish, in ms.
const disconnectQuiesce = 250

func init() {
	broker.Register("mqtt", func(ctx context.Context, cfg broker.Config) (core.Broker, error) {
		opts := optsFromConfig(cfg)
		if cfg.ClientID != "" {
			opts = append([]Option{WithClientID(cfg.ClientID)}, opts...)
		}
		return New(ctx, cfg.Brokers, opts...)
	})
}

// Broker implements core.Broker for MQTT 3.1.1 using the Eclipse Paho client.
//
// MQTT messages carry only a payload, so the key and headers are dropped.
// With QoS 1 or 2 Publish waits until the broker acknowledged the message.
type Broker struct {
	client paho.Client
	opts   options

	mu     sync.Mutex
	closed bool
}

// New connects to the given servers (tcp://host:1883, ssl://host:8883).
func New(ctx context.Context, servers []string, fns ...Option) (*Broker, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("brokerbridge/mqtt: at least one server URL is required")
	}
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}
	if opts.qos > 2 {
		return nil, fmt.Errorf("brokerbridge/mqtt: invalid qos %d", opts.qos)
	}

	co := paho.NewClientOptions().
		SetClientID(opts.clientID).
		SetConnectTimeout(opts.connectTimeout).
		SetAutoReconnect(true).
		SetCleanSession(true)
	for _, s := range servers {
		co.AddBroker(s)
	}
	if opts.username != "" {
		co.SetUsername(opts.username).SetPassword(opts.password)
	}

	client := paho.NewClient(co)
	if err := wait(ctx, client.Connect(), opts.connectTimeout); err != nil {
		// A connect that completes after ctx ended must not leave a live session.
		client.Disconnect(0)
		return nil, fmt.Errorf("brokerbridge/mqtt: connect: %w", err)
	}
	return &Broker{client: client, opts: opts}, nil
}

// Publish sends the message value to topic.
func (b *Broker) Publish(ctx context.Context, topic string, msg core.Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return core.ErrBrokerClosed
	}
	b.mu.Unlock()

	token := b.client.Publish(topic, b.opts.qos, b.opts.retained, msg.Value())
	if err := wait(ctx, token, b.opts.publishTimeout); err != nil {
		return fmt.Errorf("brokerbridge/mqtt: publish to %q: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.client.Disconnect(disconnectQuiesce)
	return nil
}

// wait blocks until token completes, ctx ends or timeout elapses. The
// timeout only applies when ctx has no deadline of its own.
func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	if _, ok := ctx.Deadline(); !ok && timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return errors.Join(errors.New("no acknowledgement"), ctx.Err())
	}
}

// optsFromConfig extracts options from broker.Config.Extra.
func optsFromConfig(cfg broker.Config) []Option {
	var opts []Option
	if v, ok := cfg.Int("qos"); ok && v >= 0 && v <= 2 {
		opts = append(opts, WithQoS(byte(v)))
	}
	if v, ok := cfg.Bool("retained"); ok {
		opts = append(opts, WithRetained(v))
	}
	user, _ := cfg.String("username")
	if pass, ok := cfg.String("password"); ok {
		opts = append(opts, WithCredentials(user, pass))
	}
	if v, ok := cfg.Duration("connect_timeout"); ok {
		opts = append(opts, WithConnectTimeout(v))
	}
	if v, ok := cfg.Duration("publish_timeout"); ok {
		opts = append(opts, WithPublishTimeout(v))
	}
	return opts
}
