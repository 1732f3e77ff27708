// Package brokerbridge forwards dataplane traffic to external message
// brokers. It re-exports the core types so that embedding applications can
// write:
//
//	p := brokerbridge.New(dp, node, provider.WithLogger(logger))
//	id, err := p.Start(ctx, brokerbridge.InstanceSpecification{
//	    Configuration: map[string]string{"brokers": "localhost:9092", "topic": "events"},
//	})
//
// Broker backends are plugins under plugins/ that register themselves when
// imported.
package brokerbridge

import (
	"github.com/google/uuid"

	"github.com/miladsoleymani/brokerbridge/core"
	"github.com/miladsoleymani/brokerbridge/provider"
)

// Re-export core types at the package level for ergonomic usage.
type (
	InstanceID            = core.InstanceID
	Event                 = core.Event
	Message               = core.Message
	Broker                = core.Broker
	DataplaneHandle       = core.DataplaneHandle
	DataplaneProvider     = core.DataplaneProvider
	Handler               = core.Handler
	Middleware            = core.Middleware
	ProvisionError        = core.ProvisionError
	Provider              = provider.Provider
	InstanceSpecification = provider.InstanceSpecification
	PatchRequest          = provider.PatchRequest
)

// New creates a Provider that allocates instances on node and obtains
// their handles from dp.
func New(dp DataplaneProvider, node uuid.UUID, opts ...provider.Option) *Provider {
	return provider.New(dp, node, opts...)
}
