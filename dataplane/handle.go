package dataplane

import (
	"context"
	"sync"

	"github.com/miladsoleymani/brokerbridge/core"
)

// Handle is the dataplane endpoint of one instance. It implements
// core.DataplaneHandle and additionally lets the owner send casts and calls.
type Handle struct {
	id    core.InstanceID
	dp    *Local
	inbox chan core.Event

	mu      sync.Mutex
	pending map[uint64]chan core.CallRet

	closeOnce sync.Once
	closed    chan struct{}
}

// ID returns the instance id the handle is bound to.
func (h *Handle) ID() core.InstanceID { return h.id }

// ReceiveNext blocks until the next inbound event.
func (h *Handle) ReceiveNext(ctx context.Context) (core.Event, error) {
	select {
	case <-h.closed:
		return core.Event{}, core.ErrHandleClosed
	default:
	}
	select {
	case ev := <-h.inbox:
		return ev, nil
	case <-h.closed:
		return core.Event{}, core.ErrHandleClosed
	case <-ctx.Done():
		return core.Event{}, ctx.Err()
	}
}

// Reply answers the call received from source on channel.
func (h *Handle) Reply(ctx context.Context, source core.InstanceID, channel uint64, ret core.CallRet) error {
	if h.isClosed() {
		return core.ErrHandleClosed
	}
	return h.dp.deliver(ctx, source, core.Event{
		Source:  h.id,
		Channel: channel,
		Message: core.Payload{Kind: core.KindCallRet, Ret: ret},
	})
}

// Send delivers msg to target on a fresh channel.
func (h *Handle) Send(ctx context.Context, target core.InstanceID, msg core.Payload) error {
	if h.isClosed() {
		return core.ErrHandleClosed
	}
	return h.dp.deliver(ctx, target, core.Event{
		Source:  h.id,
		Channel: h.dp.channel.Add(1),
		Message: msg,
	})
}

// Cast sends a fire-and-forget message to target.
func (h *Handle) Cast(ctx context.Context, target core.InstanceID, data []byte) error {
	return h.Send(ctx, target, core.Cast(data))
}

// Call sends a call to target and waits for its reply.
func (h *Handle) Call(ctx context.Context, target core.InstanceID, data []byte) (core.CallRet, error) {
	if h.isClosed() {
		return core.CallRet{}, core.ErrHandleClosed
	}

	channel := h.dp.channel.Add(1)
	wait := make(chan core.CallRet, 1)
	h.mu.Lock()
	h.pending[channel] = wait
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.pending, channel)
		h.mu.Unlock()
	}()

	err := h.dp.deliver(ctx, target, core.Event{
		Source:  h.id,
		Channel: channel,
		Message: core.Call(data),
	})
	if err != nil {
		return core.CallRet{}, err
	}

	select {
	case ret := <-wait:
		return ret, nil
	case <-h.closed:
		return core.CallRet{}, core.ErrHandleClosed
	case <-ctx.Done():
		return core.CallRet{}, ctx.Err()
	}
}

// Close detaches the handle from the dataplane. Subsequent sends addressed
// to it fail with core.ErrUnknownTarget. Close is idempotent.
func (h *Handle) Close() error {
	h.dp.detach(h)
	h.shutdown()
	return nil
}

func (h *Handle) shutdown() {
	h.closeOnce.Do(func() { close(h.closed) })
}

func (h *Handle) isClosed() bool {
	select {
	case <-h.closed:
		return true
	default:
		return false
	}
}

// resolve hands ret to a caller waiting on channel, if any.
func (h *Handle) resolve(channel uint64, ret core.CallRet) bool {
	h.mu.Lock()
	wait, ok := h.pending[channel]
	h.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case wait <- ret:
	default:
	}
	return true
}
