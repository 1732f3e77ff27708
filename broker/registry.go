package broker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/miladsoleymani/brokerbridge/core"
)

// Factory creates a Broker from the given Config. It may block while a
// connection is established and must honour ctx.
type Factory func(ctx context.Context, cfg Config) (core.Broker, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a named broker factory. Plugins call this from init().
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// Registered reports whether a factory with the given name exists.
func Registered(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Names returns the registered factory names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create instantiates a broker by name using the registered factory.
func Create(ctx context.Context, name string, cfg Config) (core.Broker, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("brokerbridge: unknown broker %q", name)
	}
	return f(ctx, cfg)
}
