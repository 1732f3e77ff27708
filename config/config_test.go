package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/brokerbridge/core"
)

const sample = `
node_id: 6f1c1f38-4f3e-4b7a-9b39-2a8f5b1a0c11
log_level: debug
api_addr: ":18080"
shutdown_timeout: 3s
instances:
  - name: orders
    class_type: broker-bridge
    configuration:
      brokers: "k1:9092,k2:9092"
      topic: orders
      key_mode: source
  - name: audit
    configuration:
      backend: nats
      brokers: nats://localhost:4222
      topic: audit
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "6f1c1f38-4f3e-4b7a-9b39-2a8f5b1a0c11", cfg.Node().String())
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, ":18080", cfg.APIAddr)
	assert.Equal(t, DefaultMetricsAddr, cfg.MetricsAddr)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)

	require.Len(t, cfg.Instances, 2)
	spec := cfg.Instances[0].Specification()
	assert.Equal(t, "broker-bridge", spec.ClassType)
	assert.Equal(t, "orders", spec.Configuration["topic"])
	assert.Equal(t, "nats", cfg.Instances[1].Configuration["backend"])
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad node id":     "node_id: not-a-uuid",
		"bad log level":   "log_level: loud",
		"missing topic":   "instances: [{name: a, configuration: {brokers: 'b:9092'}}]",
		"duplicate names": "instances: [{name: a, configuration: {brokers: b, topic: t}}, {name: a, configuration: {brokers: b, topic: t}}]",
		"malformed yaml":  "instances: [",
		"bad reply mode":  "instances: [{configuration: {brokers: b, topic: t, reply: sometimes}}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config:")
		})
	}
}

func TestValidate_WrapsProvisionError(t *testing.T) {
	_, err := Parse([]byte("instances: [{configuration: {topic: t}}]"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Instances, 2)

	t.Setenv(EnvPath, path)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Len(t, cfg.Instances, 2)
}

func TestLoad_NoPath(t *testing.T) {
	t.Setenv(EnvPath, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNode_RandomWhenUnset(t *testing.T) {
	cfg := Default()
	assert.NotEqual(t, cfg.Node(), cfg.Node())
}
