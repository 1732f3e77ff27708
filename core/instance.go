package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// InstanceID identifies one provisioned instance on one node.
// It is comparable and safe to use as a map key.
type InstanceID struct {
	NodeID     uuid.UUID
	FunctionID uuid.UUID
}

// NewInstanceID allocates a fresh identifier scoped to node.
func NewInstanceID(node uuid.UUID) InstanceID {
	return InstanceID{NodeID: node, FunctionID: uuid.New()}
}

// IsZero reports whether id is the zero value.
func (id InstanceID) IsZero() bool {
	return id.NodeID == uuid.Nil && id.FunctionID == uuid.Nil
}

// String renders the id as "node/function".
func (id InstanceID) String() string {
	return id.NodeID.String() + "/" + id.FunctionID.String()
}

// ParseInstanceID is the inverse of InstanceID.String.
func ParseInstanceID(s string) (InstanceID, error) {
	node, fn, ok := strings.Cut(s, "/")
	if !ok {
		return InstanceID{}, fmt.Errorf("brokerbridge: malformed instance id %q", s)
	}
	n, err := uuid.Parse(node)
	if err != nil {
		return InstanceID{}, fmt.Errorf("brokerbridge: instance id node: %w", err)
	}
	f, err := uuid.Parse(fn)
	if err != nil {
		return InstanceID{}, fmt.Errorf("brokerbridge: instance id function: %w", err)
	}
	return InstanceID{NodeID: n, FunctionID: f}, nil
}
