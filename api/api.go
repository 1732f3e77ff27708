// Package api exposes the provider over HTTP.
//
//	POST   /v1/instances       start an instance
//	GET    /v1/instances       list active instances
//	DELETE /v1/instances/{id}  stop an instance
//	PATCH  /v1/instances/{id}  accepted, ignored
//
// Instance ids render as "node/function", so {id} spans two path segments.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/miladsoleymani/brokerbridge/core"
	"github.com/miladsoleymani/brokerbridge/internal/jsoncodec"
	"github.com/miladsoleymani/brokerbridge/provider"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Provisioner is the part of provider.Provider the API drives.
type Provisioner interface {
	Start(ctx context.Context, spec provider.InstanceSpecification) (core.InstanceID, error)
	Stop(ctx context.Context, id core.InstanceID) error
	Patch(ctx context.Context, req provider.PatchRequest) error
	Instances() []core.InstanceID
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// Handler serves the provisioning API.
type Handler struct {
	p      Provisioner
	mux    *http.ServeMux
	logger zerolog.Logger
}

type listResponse struct {
	Instances []string `json:"instances"`
}

type patchBody struct {
	Configuration map[string]string `json:"configuration"`
}

// New returns a Handler serving p.
func New(p Provisioner, opts ...Option) *Handler {
	h := &Handler{p: p, mux: http.NewServeMux(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With().Str("component", "api").Logger()

	h.mux.HandleFunc("POST /v1/instances", h.start)
	h.mux.HandleFunc("GET /v1/instances", h.list)
	h.mux.HandleFunc("DELETE /v1/instances/{id...}", h.stop)
	h.mux.HandleFunc("PATCH /v1/instances/{id...}", h.patch)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var spec provider.InstanceSpecification
	if err := jsoncodec.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), &spec); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id, err := h.p.Start(r.Context(), spec)
	resp := provider.NewStartResponse(id, err)
	if resp.Error != nil {
		h.logger.Warn().Err(err).Str("class_type", spec.ClassType).Msg("start failed")
		h.writeJSON(w, statusFor(err), resp.Error)
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	ids := h.p.Instances()
	resp := listResponse{Instances: make([]string, 0, len(ids))}
	for _, id := range ids {
		resp.Instances = append(resp.Instances, id.String())
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) stop(w http.ResponseWriter, r *http.Request) {
	id, ok := h.instanceID(w, r)
	if !ok {
		return
	}
	if err := h.p.Stop(r.Context(), id); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Resource teardown failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.instanceID(w, r)
	if !ok {
		return
	}
	var body patchBody
	if r.ContentLength != 0 {
		if err := jsoncodec.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), &body); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	if err := h.p.Patch(r.Context(), provider.PatchRequest{InstanceID: id, Configuration: body.Configuration}); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Resource patch failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) instanceID(w http.ResponseWriter, r *http.Request) (core.InstanceID, bool) {
	id, err := core.ParseInstanceID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid instance id", err)
		return core.InstanceID{}, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrBackendUnavailable), errors.Is(err, core.ErrProviderClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, summary string, err error) {
	detail := err.Error()
	h.writeJSON(w, status, provider.ResponseError{Summary: summary, Detail: &detail})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsoncodec.Encode(w, v); err != nil {
		h.logger.Error().Err(err).Msg("failed to write response")
	}
}
