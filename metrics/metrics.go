// Package metrics exposes bridge activity as Prometheus series.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miladsoleymani/brokerbridge/core"
)

const (
	namespace = "brokerbridge"

	resultOK    = "ok"
	resultError = "error"
)

// Collector records forwarding and instance lifecycle metrics. It satisfies
// middleware.MetricsCollector and provider.Observer.
type Collector struct {
	mu sync.Mutex

	forwardedTotal  *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec
	activeInstances *prometheus.GaugeVec
	instancesTotal  *prometheus.CounterVec

	registerer prometheus.Registerer
	registered bool
}

// New creates a Collector. A nil registerer means prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Collector{
		registerer: registerer,
		forwardedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarded_total",
			Help:      "Dataplane events handed to a broker, by topic, message kind and result.",
		}, []string{"topic", "kind", "result"}),
		publishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Time spent publishing one event.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"topic"}),
		activeInstances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_instances",
			Help:      "Bridge instances currently running, by backend.",
		}, []string{"backend"}),
		instancesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_started_total",
			Help:      "Bridge instances started, by backend.",
		}, []string{"backend"}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (c *Collector) Register() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		c.forwardedTotal,
		c.publishDuration,
		c.activeInstances,
		c.instancesTotal,
	}
	for _, col := range collectors {
		if err := c.registerer.Register(col); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	c.registered = true
	return nil
}

// MessageForwarded records one publish attempt.
func (c *Collector) MessageForwarded(topic string, kind core.MessageKind, d time.Duration, err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}
	c.forwardedTotal.WithLabelValues(topic, kind.String(), result).Inc()
	c.publishDuration.WithLabelValues(topic).Observe(d.Seconds())
}

func (c *Collector) InstanceStarted(_ core.InstanceID, backend string) {
	c.activeInstances.WithLabelValues(backend).Inc()
	c.instancesTotal.WithLabelValues(backend).Inc()
}

func (c *Collector) InstanceStopped(_ core.InstanceID, backend string) {
	c.activeInstances.WithLabelValues(backend).Dec()
}
