package core

import "context"

// Message is the broker-agnostic outbound message abstraction.
// Broker plugins translate it into their native record type.
type Message interface {
	Key() []byte
	Value() []byte
	Headers() map[string]string
}

// Record is the Message produced by a forwarding worker for every
// dataplane event it publishes.
type Record struct {
	K []byte
	V []byte
	H map[string]string
}

func (r *Record) Key() []byte                { return r.K }
func (r *Record) Value() []byte              { return r.V }
func (r *Record) Headers() map[string]string { return r.H }

// Header keys attached to every forwarded record.
const (
	HeaderMessageID = "bridge-message-id"
	HeaderInstance  = "bridge-instance"
	HeaderSource    = "bridge-source"
	HeaderKind      = "bridge-kind"
)

// Handler is one step of the forwarding chain: it receives a classified
// dataplane event together with the record built for it.
type Handler func(ctx context.Context, fwd *Forward) error

// Middleware wraps a Handler to add cross-cutting behavior.
type Middleware func(Handler) Handler

// Forward carries a single event through the forwarding chain.
type Forward struct {
	Instance InstanceID
	Topic    string
	Event    Event
	Record   *Record
}
