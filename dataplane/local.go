// Package dataplane provides an in-process dataplane: a bus that delivers
// addressed messages between instances living on the same node.
//
// Every instance owns one Handle. Casts and calls are queued on the target
// handle's inbox in send order; replies to a call are routed back to the
// caller that is waiting on that channel instead of its inbox.
package dataplane

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/miladsoleymani/brokerbridge/core"
)

// Option configures a Local dataplane.
type Option func(*Local)

// WithBuffer sets the inbox capacity of every handle. Senders block once a
// target inbox is full.
func WithBuffer(n int) Option {
	return func(l *Local) {
		if n >= 0 {
			l.buffer = n
		}
	}
}

// WithLogger sets the logger used for routing diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Local) { l.logger = logger }
}

// Local is an in-process core.DataplaneProvider.
type Local struct {
	node    uuid.UUID
	buffer  int
	logger  zerolog.Logger
	channel atomic.Uint64

	mu      sync.RWMutex
	handles map[core.InstanceID]*Handle
}

// NewLocal creates a dataplane for the given node.
func NewLocal(node uuid.UUID, opts ...Option) *Local {
	l := &Local{
		node:    node,
		buffer:  64,
		logger:  zerolog.Nop(),
		handles: make(map[core.InstanceID]*Handle),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Node returns the node id this dataplane serves.
func (l *Local) Node() uuid.UUID { return l.node }

// HandleFor implements core.DataplaneProvider.
func (l *Local) HandleFor(ctx context.Context, id core.InstanceID) (core.DataplaneHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Open(id), nil
}

// Open returns a new handle bound to id. A handle previously bound to the
// same id is closed and replaced.
func (l *Local) Open(id core.InstanceID) *Handle {
	h := &Handle{
		id:      id,
		dp:      l,
		inbox:   make(chan core.Event, l.buffer),
		pending: make(map[uint64]chan core.CallRet),
		closed:  make(chan struct{}),
	}

	l.mu.Lock()
	old := l.handles[id]
	l.handles[id] = h
	l.mu.Unlock()

	if old != nil {
		l.logger.Debug().Str("instance_id", id.String()).Msg("replacing dataplane handle")
		old.shutdown()
	}
	return h
}

// Len returns the number of open handles.
func (l *Local) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.handles)
}

func (l *Local) lookup(id core.InstanceID) (*Handle, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.handles[id]
	return h, ok
}

func (l *Local) detach(h *Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handles[h.id] == h {
		delete(l.handles, h.id)
	}
}

func (l *Local) deliver(ctx context.Context, target core.InstanceID, ev core.Event) error {
	h, ok := l.lookup(target)
	if !ok {
		return core.ErrUnknownTarget
	}
	if ev.Message.Kind == core.KindCallRet && h.resolve(ev.Channel, ev.Message.Ret) {
		return nil
	}
	select {
	case <-h.closed:
		return core.ErrUnknownTarget
	default:
	}
	select {
	case h.inbox <- ev:
		return nil
	case <-h.closed:
		return core.ErrUnknownTarget
	case <-ctx.Done():
		return ctx.Err()
	}
}
