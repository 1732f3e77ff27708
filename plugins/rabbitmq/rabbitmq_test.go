package rabbitmq

import (
	"context"
	"net"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/brokerbridge/broker"
	"github.com/miladsoleymani/brokerbridge/core"
)

func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New("amqp://guest:guest@"+closedPort(t)+"/", WithDialTimeout(200*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brokerbridge/rabbitmq: dial")
}

func TestFactory_RequiresURI(t *testing.T) {
	_, err := broker.Create(context.Background(), "rabbitmq", broker.Config{Topic: "t"})
	require.Error(t, err)
}

func TestPublishing(t *testing.T) {
	b := &Broker{opts: defaults()}
	p := b.publishing(&core.Record{
		K: []byte("k1"),
		V: []byte("body"),
		H: map[string]string{core.HeaderMessageID: "id-1", core.HeaderKind: "cast"},
	})

	assert.Equal(t, []byte("body"), p.Body)
	assert.Equal(t, "id-1", p.MessageId)
	assert.Equal(t, amqp.Persistent, p.DeliveryMode)
	assert.Equal(t, "k1", p.Headers[HeaderKey])
	assert.Equal(t, "cast", p.Headers[core.HeaderKind])

	b.opts.persistent = false
	assert.Zero(t, b.publishing(&core.Record{}).DeliveryMode)
}

func TestPublish_AfterClose(t *testing.T) {
	b := &Broker{opts: defaults(), closed: true}
	err := b.Publish(context.Background(), "t", &core.Record{})
	assert.ErrorIs(t, err, core.ErrBrokerClosed)
}

func TestOptsFromConfig(t *testing.T) {
	o := defaults()
	for _, fn := range optsFromConfig(broker.Config{Extra: map[string]string{
		"exchange":      "events",
		"exchange_type": "topic",
		"routing_key":   "bridge.out",
		"declare":       "true",
		"confirm":       "false",
		"dial_timeout":  "3s",
	}}) {
		fn(&o)
	}
	assert.Equal(t, "events", o.exchange)
	assert.Equal(t, "topic", o.exchangeType)
	assert.Equal(t, "bridge.out", o.routingKey)
	assert.True(t, o.declare)
	assert.False(t, o.confirm)
	assert.True(t, o.durable)
	assert.Equal(t, 3*time.Second, o.dialTimeout)
}

func TestOptsFromConfig_ExchangeDefaultsToDirect(t *testing.T) {
	o := defaults()
	for _, fn := range optsFromConfig(broker.Config{Extra: map[string]string{"exchange": "events"}}) {
		fn(&o)
	}
	assert.Equal(t, "direct", o.exchangeType)
}

func TestRegistered(t *testing.T) {
	assert.True(t, broker.Registered("rabbitmq"))
}
