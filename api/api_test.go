package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/brokerbridge/api"
	"github.com/miladsoleymani/brokerbridge/core"
	"github.com/miladsoleymani/brokerbridge/dataplane"
	"github.com/miladsoleymani/brokerbridge/internal/jsoncodec"
	"github.com/miladsoleymani/brokerbridge/internal/mock"
	"github.com/miladsoleymani/brokerbridge/provider"
)

type env struct {
	provider *provider.Provider
	factory  *mock.Factory
	server   *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	node := uuid.New()
	e := &env{factory: &mock.Factory{}}
	e.provider = provider.New(dataplane.NewLocal(node), node, provider.WithBrokerFactory(e.factory.Create))
	e.server = httptest.NewServer(api.New(e.provider))
	t.Cleanup(func() {
		e.server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.provider.Close(ctx)
	})
	return e
}

func (e *env) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, jsoncodec.Decode(resp.Body, &v))
	return v
}

type errorBody struct {
	Summary string `json:"summary"`
	Detail  string `json:"detail"`
}

func (e *env) startInstance(t *testing.T) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/v1/instances",
		`{"class_type":"broker-bridge","configuration":{"brokers":"b:9092","topic":"t"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	require.NotEmpty(t, body["instance_id"])
	return body["instance_id"]
}

func TestStart(t *testing.T) {
	e := newEnv(t)
	raw := e.startInstance(t)

	id, err := core.ParseInstanceID(raw)
	require.NoError(t, err)
	assert.True(t, e.provider.Contains(id))
}

func TestStart_ResponseBody(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodPost, "/v1/instances",
		`{"class_type":"broker-bridge","configuration":{"brokers":"b:9092","topic":"t"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	require.Len(t, body, 1)
	raw, ok := body["instance_id"].(string)
	require.True(t, ok)
	_, err := core.ParseInstanceID(raw)
	assert.NoError(t, err)
}

func TestStart_InvalidConfiguration(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodPost, "/v1/instances", `{"configuration":{"topic":"t"}}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body := decode[errorBody](t, resp)
	assert.Equal(t, "Invalid resource configuration", body.Summary)
	assert.Equal(t, "One of the fields 'brokers' or 'topic' is missing", body.Detail)
	assert.Equal(t, 0, e.provider.Len())
}

func TestStart_BackendUnavailable(t *testing.T) {
	e := newEnv(t)
	e.factory.Err = errors.New("connection refused")

	resp := e.do(t, http.MethodPost, "/v1/instances", `{"configuration":{"brokers":"b:9092","topic":"t"}}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decode[errorBody](t, resp)
	assert.Equal(t, "Broker unavailable", body.Summary)
	assert.Contains(t, body.Detail, "connection refused")
}

func TestStart_MalformedBody(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodPost, "/v1/instances", `{"configuration":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", decode[errorBody](t, resp).Summary)
}

func TestList(t *testing.T) {
	e := newEnv(t)
	a := e.startInstance(t)
	b := e.startInstance(t)

	resp := e.do(t, http.MethodGet, "/v1/instances", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Instances []string `json:"instances"`
	}](t, resp)
	assert.ElementsMatch(t, []string{a, b}, body.Instances)
}

func TestList_Empty(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodGet, "/v1/instances", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string][]string](t, resp)
	assert.NotNil(t, body["instances"])
	assert.Empty(t, body["instances"])
}

func TestStop(t *testing.T) {
	e := newEnv(t)
	raw := e.startInstance(t)

	resp := e.do(t, http.MethodDelete, "/v1/instances/"+raw, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, e.provider.Len())
	assert.True(t, e.factory.Last().IsClosed())

	resp = e.do(t, http.MethodDelete, "/v1/instances/"+raw, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestStop_BadID(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodDelete, "/v1/instances/not-an-id", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid instance id", decode[errorBody](t, resp).Summary)
}

func TestPatch(t *testing.T) {
	e := newEnv(t)
	raw := e.startInstance(t)

	resp := e.do(t, http.MethodPatch, "/v1/instances/"+raw, `{"configuration":{"topic":"other"}}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, e.provider.Len())

	resp = e.do(t, http.MethodPatch, "/v1/instances/"+raw, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodPut, "/v1/instances", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
