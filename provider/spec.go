package provider

import (
	"errors"

	"github.com/miladsoleymani/brokerbridge/core"
)

// InstanceSpecification is a provisioning request.
type InstanceSpecification struct {
	// ClassType names the resource class being provisioned.
	ClassType string `json:"class_type"`

	// Configuration is the key/value set describing the bridge.
	// See ParseBridgeConfig for the recognised keys.
	Configuration map[string]string `json:"configuration"`
}

// PatchRequest is accepted for forward compatibility and currently ignored.
type PatchRequest struct {
	InstanceID    core.InstanceID   `json:"-"`
	Configuration map[string]string `json:"configuration,omitempty"`
}

// ResponseError is the structured provisioning error reported to callers.
type ResponseError struct {
	Summary string  `json:"summary"`
	Detail  *string `json:"detail,omitempty"`
}

// StartResponse carries either the id of the new instance or the error
// that prevented its creation. InstanceID is empty on failure.
type StartResponse struct {
	InstanceID string         `json:"instance_id,omitempty"`
	Error      *ResponseError `json:"error,omitempty"`
}

// ToResponseError converts err into its structured form.
func ToResponseError(err error) ResponseError {
	var pe *core.ProvisionError
	if errors.As(err, &pe) {
		re := ResponseError{Summary: pe.Summary}
		if pe.Detail != "" {
			detail := pe.Detail
			re.Detail = &detail
		}
		return re
	}
	detail := err.Error()
	return ResponseError{Summary: "Resource provisioning failed", Detail: &detail}
}

// NewStartResponse builds a StartResponse from the result of Provider.Start.
func NewStartResponse(id core.InstanceID, err error) StartResponse {
	if err != nil {
		re := ToResponseError(err)
		return StartResponse{Error: &re}
	}
	return StartResponse{InstanceID: id.String()}
}
