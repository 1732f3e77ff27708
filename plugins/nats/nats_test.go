package nats

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/brokerbridge/broker"
	"github.com/miladsoleymani/brokerbridge/core"
)

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)
}

func TestNew_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = New(context.Background(), []string{"nats://" + addr}, WithConnectTimeout(200*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brokerbridge/nats: connect")
}

func TestNew_CancelledContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan struct{}, 1)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- struct{}{}
			_ = conn.Close()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(ctx, []string{"nats://" + ln.Addr().String()}, WithConnectTimeout(time.Second))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brokerbridge/nats: connect")
	select {
	case <-accepted:
		t.Fatal("dialed the server with a cancelled context")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCtxDialer_Detach(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	d := &ctxDialer{ctx: ctx, timeout: time.Second}
	cancel()

	_, err = d.Dial("tcp", ln.Addr().String())
	assert.ErrorIs(t, err, context.Canceled)

	d.detach()
	conn, err := d.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	_ = conn.Close()
}

func TestToHeader(t *testing.T) {
	h := toHeader(&core.Record{
		K: []byte("k1"),
		H: map[string]string{core.HeaderMessageID: "01J0000000000000000000000", "x": "y"},
	})

	assert.Equal(t, "k1", h.Get(HeaderKey))
	assert.Equal(t, "y", h.Get("x"))
	assert.Equal(t, "01J0000000000000000000000", h.Get(nats.MsgIdHdr))
}

func TestOptsFromConfig(t *testing.T) {
	o := defaults()
	for _, fn := range optsFromConfig(broker.Config{Extra: map[string]string{
		"jetstream":       "true",
		"flush":           "false",
		"connect_timeout": "1s",
	}}) {
		fn(&o)
	}
	assert.True(t, o.jetStream)
	assert.False(t, o.flush)
	assert.Equal(t, time.Second, o.connectTimeout)
}

func TestRegistered(t *testing.T) {
	assert.True(t, broker.Registered("nats"))
}
