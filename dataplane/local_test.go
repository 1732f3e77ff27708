package dataplane_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/brokerbridge/core"
	"github.com/miladsoleymani/brokerbridge/dataplane"
)

func newPair(t *testing.T) (*dataplane.Local, *dataplane.Handle, *dataplane.Handle) {
	t.Helper()
	node := uuid.New()
	dp := dataplane.NewLocal(node)
	a := dp.Open(core.NewInstanceID(node))
	b := dp.Open(core.NewInstanceID(node))
	return dp, a, b
}

func TestCastIsDeliveredInOrder(t *testing.T) {
	_, a, b := newPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, a.Cast(ctx, b.ID(), []byte("one")))
	require.NoError(t, a.Cast(ctx, b.ID(), []byte("two")))

	ev, err := b.ReceiveNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.KindCast, ev.Message.Kind)
	assert.Equal(t, "one", string(ev.Message.Data))
	assert.Equal(t, a.ID(), ev.Source)

	ev, err = b.ReceiveNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", string(ev.Message.Data))
}

func TestCallAndReply(t *testing.T) {
	_, a, b := newPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		ev, err := b.ReceiveNext(ctx)
		if err != nil {
			return
		}
		_ = b.Reply(ctx, ev.Source, ev.Channel, core.Reply([]byte("pong:"+string(ev.Message.Data))))
	}()

	ret, err := a.Call(ctx, b.ID(), []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, core.RetReply, ret.Kind)
	assert.Equal(t, "pong:ping", string(ret.Data))
}

func TestReplyWithoutWaiterLandsInInbox(t *testing.T) {
	_, a, b := newPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, b.Reply(ctx, a.ID(), 99, core.Reply(nil)))

	ev, err := a.ReceiveNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.KindCallRet, ev.Message.Kind)
	assert.Equal(t, uint64(99), ev.Channel)
}

func TestReceiveNextHonoursContext(t *testing.T) {
	_, a, _ := newPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.ReceiveNext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClosedHandleIsOrphaned(t *testing.T) {
	dp, a, b := newPair(t)
	ctx := context.Background()

	require.Equal(t, 2, dp.Len())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, 1, dp.Len())

	_, err := b.ReceiveNext(ctx)
	assert.ErrorIs(t, err, core.ErrHandleClosed)

	err = a.Cast(ctx, b.ID(), []byte("lost"))
	assert.ErrorIs(t, err, core.ErrUnknownTarget)
}

func TestCloseUnblocksReceive(t *testing.T) {
	_, a, _ := newPair(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := a.ReceiveNext(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, a.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, core.ErrHandleClosed)
	case <-time.After(time.Second):
		t.Fatal("ReceiveNext did not return after Close")
	}
}

func TestHandleForReplacesExisting(t *testing.T) {
	node := uuid.New()
	dp := dataplane.NewLocal(node, dataplane.WithBuffer(1))
	id := core.NewInstanceID(node)

	first, err := dp.HandleFor(context.Background(), id)
	require.NoError(t, err)
	second, err := dp.HandleFor(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, dp.Len())

	_, err = first.ReceiveNext(context.Background())
	assert.ErrorIs(t, err, core.ErrHandleClosed)

	// closing the replaced handle must not detach its successor
	require.NoError(t, first.Close())
	assert.Equal(t, 1, dp.Len())
	require.NoError(t, second.Close())
	assert.Equal(t, 0, dp.Len())
}
