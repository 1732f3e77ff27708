package mock

import (
	"context"
	"sync"

	"github.com/miladsoleymani/brokerbridge/broker"
	"github.com/miladsoleymani/brokerbridge/core"
)

// Factory hands out a fresh Broker per Create call and remembers each one
// together with the Config it was built from.
type Factory struct {
	mu      sync.Mutex
	brokers []*Broker
	configs []broker.Config

	// Err, when set, makes Create fail.
	Err error

	// Prepare, when set, customises every new Broker before it is returned.
	Prepare func(b *Broker)
}

// Create matches broker.Factory.
func (f *Factory) Create(_ context.Context, cfg broker.Config) (core.Broker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	b := NewBroker()
	if f.Prepare != nil {
		f.Prepare(b)
	}
	f.brokers = append(f.brokers, b)
	f.configs = append(f.configs, cfg)
	return b, nil
}

// Brokers returns every Broker created so far.
func (f *Factory) Brokers() []*Broker {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Broker, len(f.brokers))
	copy(out, f.brokers)
	return out
}

// Configs returns the Config passed to every Create call.
func (f *Factory) Configs() []broker.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]broker.Config, len(f.configs))
	copy(out, f.configs)
	return out
}

// Last returns the most recently created Broker, or nil.
func (f *Factory) Last() *Broker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.brokers) == 0 {
		return nil
	}
	return f.brokers[len(f.brokers)-1]
}
