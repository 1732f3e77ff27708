package provider

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/miladsoleymani/brokerbridge/core"
	"github.com/miladsoleymani/brokerbridge/core/middleware"
	"github.com/miladsoleymani/brokerbridge/internal/ids"
)

// receiveBackoff throttles the loop when the handle keeps failing with
// errors other than cancellation or closure.
const receiveBackoff = 100 * time.Millisecond

// worker forwards the dataplane traffic of one instance to one topic.
// It exclusively owns its handle and broker and releases both when its
// loop exits.
type worker struct {
	id      core.InstanceID
	cfg     BridgeConfig
	handle  core.DataplaneHandle
	broker  core.Broker
	forward core.Handler
	ids     *ids.Source
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// onExit runs after the loop ended and resources were released.
	onExit func(*worker)
}

func newWorker(
	parent context.Context,
	id core.InstanceID,
	cfg BridgeConfig,
	handle core.DataplaneHandle,
	b core.Broker,
	logger zerolog.Logger,
	mws []core.Middleware,
) *worker {
	ctx, cancel := context.WithCancel(parent)
	w := &worker{
		id:     id,
		cfg:    cfg,
		handle: handle,
		broker: b,
		ids:    ids.NewSource(),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	chain := make([]core.Middleware, 0, len(mws)+2)
	chain = append(chain, middleware.Recovery(logger), middleware.Logging(logger))
	chain = append(chain, mws...)
	w.forward = middleware.Chain(w.publish, chain...)
	return w
}

func (w *worker) start() {
	go w.run()
}

// wait blocks until the loop has exited or ctx is done.
func (w *worker) wait(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *worker) run() {
	defer func() {
		if w.onExit != nil {
			w.onExit(w)
		}
	}()
	defer close(w.done)
	defer w.release()

	w.logger.Debug().Msg("forwarding loop started")
	for {
		if w.ctx.Err() != nil {
			return
		}
		ev, err := w.handle.ReceiveNext(w.ctx)
		if err != nil {
			if w.ctx.Err() != nil {
				w.logger.Debug().Msg("forwarding loop cancelled")
				return
			}
			if errors.Is(err, core.ErrHandleClosed) {
				w.logger.Warn().Msg("dataplane handle closed, stopping forwarding loop")
				return
			}
			w.logger.Warn().Err(err).Msg("dataplane receive failed")
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(receiveBackoff):
			}
			continue
		}
		w.handleEvent(ev)
	}
}

func (w *worker) handleEvent(ev core.Event) {
	needReply := false
	switch ev.Message.Kind {
	case core.KindCall:
		needReply = true
	case core.KindCast:
	default:
		// call replies and control traffic are not forwarded
		return
	}
	if w.ctx.Err() != nil {
		return
	}

	err := w.forward(w.ctx, &core.Forward{
		Instance: w.id,
		Topic:    w.cfg.Topic,
		Event:    ev,
		Record:   w.record(ev),
	})

	if !needReply {
		return
	}

	ret := core.Reply(nil)
	if err != nil && w.cfg.ReplyMode == ReplyStrict {
		ret = core.ReplyErr(err)
	}
	if rerr := w.handle.Reply(w.ctx, ev.Source, ev.Channel, ret); rerr != nil && w.ctx.Err() == nil {
		w.logger.Warn().
			Err(rerr).
			Str("source", ev.Source.String()).
			Uint64("channel", ev.Channel).
			Msg("failed to reply to call")
	}
}

func (w *worker) record(ev core.Event) *core.Record {
	key := w.cfg.Key
	if w.cfg.KeyMode == KeySource {
		key = ev.Source.String()
	}
	return &core.Record{
		K: []byte(key),
		V: ev.Message.Data,
		H: map[string]string{
			core.HeaderMessageID: w.ids.Next(),
			core.HeaderInstance:  w.id.String(),
			core.HeaderSource:    ev.Source.String(),
			core.HeaderKind:      ev.Message.Kind.String(),
		},
	}
}

func (w *worker) publish(ctx context.Context, fwd *core.Forward) error {
	return w.broker.Publish(ctx, fwd.Topic, fwd.Record)
}

func (w *worker) release() {
	if err := w.handle.Close(); err != nil {
		w.logger.Warn().Err(err).Msg("failed to close dataplane handle")
	}
	if err := w.broker.Close(); err != nil {
		w.logger.Warn().Err(err).Msg("failed to close broker")
	}
}
