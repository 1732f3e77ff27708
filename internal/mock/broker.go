package mock

import (
	"context"
	"sync"

	"github.com/miladsoleymani/brokerbridge/core"
)

// Broker is a test double for core.Broker.
type Broker struct {
	mu        sync.Mutex
	published []PublishedMessage
	attempts  int
	failures  []error
	closed    bool
	closeCh   chan struct{}

	// PublishErr, when set, is returned by every Publish.
	PublishErr error

	// PublishFunc, when set, runs before a publish is recorded. A non-nil
	// error is returned instead of recording. It may panic or block.
	PublishFunc func(ctx context.Context, topic string, msg core.Message) error
}

// PublishedMessage records a message sent through Publish.
type PublishedMessage struct {
	Topic   string
	Key     string
	Value   string
	Headers map[string]string
}

func NewBroker() *Broker {
	return &Broker{closeCh: make(chan struct{})}
}

// FailNext makes the next len(errs) publishes fail with the given errors,
// in order.
func (b *Broker) FailNext(errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, errs...)
}

func (b *Broker) Publish(ctx context.Context, topic string, msg core.Message) error {
	b.mu.Lock()
	b.attempts++
	if b.closed {
		b.mu.Unlock()
		return core.ErrBrokerClosed
	}
	if len(b.failures) > 0 {
		err := b.failures[0]
		b.failures = b.failures[1:]
		b.mu.Unlock()
		return err
	}
	if b.PublishErr != nil {
		err := b.PublishErr
		b.mu.Unlock()
		return err
	}
	fn := b.PublishFunc
	b.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, topic, msg); err != nil {
			return err
		}
	}

	headers := make(map[string]string, len(msg.Headers()))
	for k, v := range msg.Headers() {
		headers[k] = v
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, PublishedMessage{
		Topic:   topic,
		Key:     string(msg.Key()),
		Value:   string(msg.Value()),
		Headers: headers,
	})
	return nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.closeCh)
	}
	return nil
}

// Published returns all messages sent via Publish.
func (b *Broker) Published() []PublishedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PublishedMessage, len(b.published))
	copy(out, b.published)
	return out
}

// Attempts returns the number of Publish calls, successful or not.
func (b *Broker) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// IsClosed reports whether Close was called.
func (b *Broker) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Closed is closed when Close is first called.
func (b *Broker) Closed() <-chan struct{} { return b.closeCh }
