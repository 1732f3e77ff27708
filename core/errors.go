package core

import (
	"errors"
	"fmt"
)

var (
	// ErrBrokerClosed is returned when operations are attempted on a closed broker.
	ErrBrokerClosed = errors.New("brokerbridge: broker is closed")

	// ErrHandleClosed is returned by a DataplaneHandle after Close.
	ErrHandleClosed = errors.New("brokerbridge: dataplane handle is closed")

	// ErrUnknownTarget is returned when a dataplane message is addressed to an
	// instance that has no handle.
	ErrUnknownTarget = errors.New("brokerbridge: unknown dataplane target")

	// ErrProviderClosed is returned by Start once the provider has been closed.
	ErrProviderClosed = errors.New("brokerbridge: provider is closed")

	// ErrDuplicateInstance is returned when an instance id is registered twice.
	ErrDuplicateInstance = errors.New("brokerbridge: instance already registered")

	// ErrInvalidConfiguration is the kind sentinel for rejected provisioning requests.
	ErrInvalidConfiguration = errors.New("brokerbridge: invalid configuration")

	// ErrBackendUnavailable is the kind sentinel for broker connection failures
	// at provisioning time.
	ErrBackendUnavailable = errors.New("brokerbridge: backend unavailable")
)

// ProvisionErrorKind classifies a failed provisioning request.
type ProvisionErrorKind int

const (
	InvalidConfiguration ProvisionErrorKind = iota
	BackendUnavailable
)

func (k ProvisionErrorKind) String() string {
	switch k {
	case InvalidConfiguration:
		return "invalid_configuration"
	case BackendUnavailable:
		return "backend_unavailable"
	default:
		return fmt.Sprintf("ProvisionErrorKind(%d)", int(k))
	}
}

// ProvisionError is the structured error returned by a failed Start.
// Summary and Detail are meant for the provisioning caller; Err keeps the
// underlying cause, if any.
type ProvisionError struct {
	Kind    ProvisionErrorKind
	Summary string
	Detail  string
	Err     error
}

func (e *ProvisionError) Error() string {
	if e.Detail == "" {
		return "brokerbridge: " + e.Summary
	}
	return fmt.Sprintf("brokerbridge: %s: %s", e.Summary, e.Detail)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// Is lets errors.Is match a ProvisionError against the kind sentinels.
func (e *ProvisionError) Is(target error) bool {
	switch target {
	case ErrInvalidConfiguration:
		return e.Kind == InvalidConfiguration
	case ErrBackendUnavailable:
		return e.Kind == BackendUnavailable
	}
	return false
}

// NewInvalidConfiguration builds an InvalidConfiguration error.
func NewInvalidConfiguration(detail string) *ProvisionError {
	return &ProvisionError{
		Kind:    InvalidConfiguration,
		Summary: "Invalid resource configuration",
		Detail:  detail,
	}
}

// NewBackendUnavailable wraps cause as a BackendUnavailable error.
func NewBackendUnavailable(cause error) *ProvisionError {
	pe := &ProvisionError{
		Kind:    BackendUnavailable,
		Summary: "Broker unavailable",
		Err:     cause,
	}
	if cause != nil {
		pe.Detail = cause.Error()
	}
	return pe
}
