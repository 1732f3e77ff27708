package core

import "context"

// Broker defines the contract for message broker implementations.
// Each broker plugin must implement this interface. A Broker is owned by a
// single forwarding worker and is closed when that worker stops.
type Broker interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Close() error
}

// DataplaneHandle is the receiving end of the dataplane for one instance.
// ReceiveNext blocks until the next event or until ctx is done; after Close
// it returns ErrHandleClosed.
type DataplaneHandle interface {
	ReceiveNext(ctx context.Context) (Event, error)
	Reply(ctx context.Context, source InstanceID, channel uint64, ret CallRet) error
	Close() error
}

// DataplaneProvider hands out the handle bound to an instance id.
type DataplaneProvider interface {
	HandleFor(ctx context.Context, id InstanceID) (DataplaneHandle, error)
}
