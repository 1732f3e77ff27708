package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/miladsoleymani/brokerbridge/api"
	"github.com/miladsoleymani/brokerbridge/config"
	"github.com/miladsoleymani/brokerbridge/core/middleware"
	"github.com/miladsoleymani/brokerbridge/dataplane"
	"github.com/miladsoleymani/brokerbridge/metrics"
	"github.com/miladsoleymani/brokerbridge/provider"
)

const readHeaderTimeout = 5 * time.Second

// daemon wires the provider to its HTTP surfaces.
type daemon struct {
	cfg       *config.Config
	logger    zerolog.Logger
	dataplane *dataplane.Local
	provider  *provider.Provider

	apiServer     *http.Server
	apiLn         net.Listener
	metricsServer *http.Server
	metricsLn     net.Listener
}

// newDaemon builds the provider, provisions the startup instances and binds
// both listeners. On error everything acquired so far is released.
func newDaemon(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...provider.Option) (_ *daemon, err error) {
	node := cfg.Node()
	logger = logger.With().Str("node_id", node.String()).Logger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	coll := metrics.New(reg)
	if err := coll.Register(); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	dp := dataplane.NewLocal(node, dataplane.WithLogger(logger))
	base := []provider.Option{
		provider.WithLogger(logger),
		provider.WithMiddleware(middleware.Metrics(coll)),
		provider.WithObserver(coll),
	}
	p := provider.New(dp, node, append(base, opts...)...)

	d := &daemon{cfg: cfg, logger: logger, dataplane: dp, provider: p}
	defer func() {
		if err != nil {
			d.release()
		}
	}()

	for i, inst := range cfg.Instances {
		id, err := p.Start(ctx, inst.Specification())
		if err != nil {
			return nil, fmt.Errorf("provision instances[%d] %q: %w", i, inst.Name, err)
		}
		logger.Info().Str("name", inst.Name).Str("instance_id", id.String()).Msg("startup instance provisioned")
	}

	if d.apiLn, err = net.Listen("tcp", cfg.APIAddr); err != nil {
		return nil, fmt.Errorf("listen api %s: %w", cfg.APIAddr, err)
	}
	if d.metricsLn, err = net.Listen("tcp", cfg.MetricsAddr); err != nil {
		return nil, fmt.Errorf("listen metrics %s: %w", cfg.MetricsAddr, err)
	}

	d.apiServer = &http.Server{
		Handler:           api.New(p, api.WithLogger(logger)),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	d.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	return d, nil
}

// run serves until ctx is cancelled or a server fails, then shuts down.
func (d *daemon) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return serve(d.apiServer, d.apiLn) })
	g.Go(func() error { return serve(d.metricsServer, d.metricsLn) })
	g.Go(func() error {
		<-gctx.Done()
		return d.shutdown()
	})

	d.logger.Info().
		Str("api_addr", d.apiLn.Addr().String()).
		Str("metrics_addr", d.metricsLn.Addr().String()).
		Int("instances", d.provider.Len()).
		Msg("brokerbridge started")

	err := g.Wait()
	d.logger.Info().Msg("brokerbridge stopped")
	return err
}

func serve(srv *http.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (d *daemon) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := d.apiServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown api: %w", err))
	}
	if err := d.provider.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close provider: %w", err))
	}
	if err := d.metricsServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown metrics: %w", err))
	}
	return errors.Join(errs...)
}

// release undoes a partial newDaemon.
func (d *daemon) release() {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.ShutdownTimeout)
	defer cancel()
	if err := d.provider.Close(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("failed to close provider")
	}
	for _, ln := range []net.Listener{d.apiLn, d.metricsLn} {
		if ln != nil {
			_ = ln.Close()
		}
	}
}

func (d *daemon) apiAddr() string { return d.apiLn.Addr().String() }
func (d *daemon) metricsAddr() string { return d.metricsLn.Addr().String() }
