// Package provider implements the broker bridge resource provider.
//
// A Provider accepts provisioning requests and runs one forwarding worker per
// provisioned instance. Each worker drains the dataplane handle bound to its
// instance id and publishes every cast and call it receives to one broker
// topic, answering calls once the publish was attempted.
//
//	p := provider.New(dp, nodeID, provider.WithLogger(logger))
//	id, err := p.Start(ctx, provider.InstanceSpecification{
//	    Configuration: map[string]string{"brokers": "localhost:9092", "topic": "events"},
//	})
//	...
//	_ = p.Stop(ctx, id)
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/miladsoleymani/brokerbridge/broker"
	"github.com/miladsoleymani/brokerbridge/core"
)

// Observer is notified when instances start and stop.
type Observer interface {
	InstanceStarted(id core.InstanceID, backend string)
	InstanceStopped(id core.InstanceID, backend string)
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger. Workers derive child loggers from it.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithBrokerFactory replaces the plugin registry lookup: every instance gets
// its broker from f, whatever its backend.
func WithBrokerFactory(f broker.Factory) Option {
	return func(p *Provider) { p.factory = f }
}

// WithMiddleware appends forwarding middleware. It runs inside the built-in
// recovery and logging middleware, just before the publish.
func WithMiddleware(mws ...core.Middleware) Option {
	return func(p *Provider) { p.middlewares = append(p.middlewares, mws...) }
}

// WithObserver registers an instance lifecycle observer.
func WithObserver(o Observer) Option {
	return func(p *Provider) { p.observer = o }
}

// Provider is the broker bridge resource provider.
type Provider struct {
	node        uuid.UUID
	dataplane   core.DataplaneProvider
	registry    *registry
	factory     broker.Factory
	middlewares []core.Middleware
	observer    Observer
	logger      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Provider that obtains handles from dp and allocates
// instance ids on node.
func New(dp core.DataplaneProvider, node uuid.UUID, opts ...Option) *Provider {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider{
		node:      node,
		dataplane: dp,
		registry:  newRegistry(),
		logger:    zerolog.Nop(),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "provider").Str("node_id", node.String()).Logger()
	return p
}

// Start provisions a new bridge instance. Invalid configurations yield a
// *core.ProvisionError of kind InvalidConfiguration, broker connection
// failures one of kind BackendUnavailable. In both cases nothing is left
// allocated.
func (p *Provider) Start(ctx context.Context, spec InstanceSpecification) (core.InstanceID, error) {
	cfg, err := ParseBridgeConfig(spec.Configuration)
	if err != nil {
		p.logger.Warn().Err(err).Str("class_type", spec.ClassType).Msg("rejected provisioning request")
		return core.InstanceID{}, err
	}
	if p.factory == nil && !broker.Registered(cfg.Backend) {
		err := core.NewInvalidConfiguration(fmt.Sprintf("unknown backend %q (available: %s)",
			cfg.Backend, strings.Join(broker.Names(), ", ")))
		p.logger.Warn().Err(err).Str("class_type", spec.ClassType).Msg("rejected provisioning request")
		return core.InstanceID{}, err
	}
	if p.registry.isClosed() {
		return core.InstanceID{}, core.ErrProviderClosed
	}

	id := core.NewInstanceID(p.node)
	logger := p.logger.With().
		Str("instance_id", id.String()).
		Str("backend", cfg.Backend).
		Str("topic", cfg.Topic).
		Logger()

	handle, err := p.dataplane.HandleFor(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msg("failed to obtain dataplane handle")
		return core.InstanceID{}, core.NewBackendUnavailable(fmt.Errorf("dataplane handle: %w", err))
	}

	b, err := p.createBroker(ctx, cfg.Backend, cfg.brokerConfig(id))
	if err != nil {
		if cerr := handle.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to close dataplane handle")
		}
		logger.Error().Err(err).Strs("brokers", cfg.Brokers).Msg("failed to create broker client")
		return core.InstanceID{}, core.NewBackendUnavailable(err)
	}

	w := newWorker(p.ctx, id, cfg, handle, b, logger, p.middlewares)
	w.onExit = p.evict
	if err := p.registry.insert(w); err != nil {
		w.cancel()
		w.release()
		return core.InstanceID{}, err
	}
	w.start()

	if p.observer != nil {
		p.observer.InstanceStarted(id, cfg.Backend)
	}
	logger.Info().
		Str("class_type", spec.ClassType).
		Strs("brokers", cfg.Brokers).
		Msg("instance started")
	return id, nil
}

// Stop tears down the instance. Unknown ids are ignored. Once Stop returns
// the worker publishes nothing more, unless ctx ended first, in which case
// an in-flight publish is abandoned. Stop always returns nil.
func (p *Provider) Stop(ctx context.Context, id core.InstanceID) error {
	w, ok := p.registry.remove(id)
	if !ok {
		p.logger.Debug().Str("instance_id", id.String()).Msg("stop for unknown instance ignored")
		return nil
	}

	if err := w.wait(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("instance teardown did not finish before deadline")
	}
	if p.observer != nil {
		p.observer.InstanceStopped(id, w.cfg.Backend)
	}
	w.logger.Info().Msg("instance stopped")
	return nil
}

// Patch is accepted and ignored. Existing instances are not affected.
func (p *Provider) Patch(_ context.Context, req PatchRequest) error {
	p.logger.Debug().Str("instance_id", req.InstanceID.String()).Msg("patch ignored")
	return nil
}

// Instances returns the ids of all active instances, in no particular order.
func (p *Provider) Instances() []core.InstanceID {
	return p.registry.ids()
}

// Contains reports whether id is an active instance.
func (p *Provider) Contains(id core.InstanceID) bool {
	return p.registry.contains(id)
}

// Len returns the number of active instances.
func (p *Provider) Len() int {
	return p.registry.len()
}

// Close stops every instance and makes further Start calls fail with
// core.ErrProviderClosed. It waits for all workers to exit or for ctx.
func (p *Provider) Close(ctx context.Context) error {
	workers := p.registry.drain()
	p.cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			if err := w.wait(gctx); err != nil {
				return fmt.Errorf("brokerbridge: stop %s: %w", w.id, err)
			}
			if p.observer != nil {
				p.observer.InstanceStopped(w.id, w.cfg.Backend)
			}
			return nil
		})
	}
	err := g.Wait()
	p.logger.Info().Int("instances", len(workers)).Msg("provider closed")
	return err
}

func (p *Provider) createBroker(ctx context.Context, backend string, cfg broker.Config) (core.Broker, error) {
	var (
		b   core.Broker
		err error
	)
	if p.factory != nil {
		b, err = p.factory(ctx, cfg)
	} else {
		b, err = broker.Create(ctx, backend, cfg)
	}
	if err == nil && b == nil {
		err = errors.New("brokerbridge: factory returned no broker")
	}
	return b, err
}

// evict drops a worker whose loop ended on its own, e.g. because its
// dataplane handle was closed underneath it.
func (p *Provider) evict(w *worker) {
	if !p.registry.evict(w) {
		return
	}
	if p.observer != nil {
		p.observer.InstanceStopped(w.id, w.cfg.Backend)
	}
	w.logger.Warn().Msg("instance evicted after its forwarding loop ended")
}
