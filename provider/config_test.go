package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/brokerbridge/core"
	"github.com/miladsoleymani/brokerbridge/provider"
)

func TestParseBridgeConfig_Defaults(t *testing.T) {
	cfg, err := provider.ParseBridgeConfig(map[string]string{
		"brokers": "localhost:9092",
		"topic":   " counter-topic ",
	})
	require.NoError(t, err)

	assert.Equal(t, provider.DefaultBackend, cfg.Backend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, "counter-topic", cfg.Topic)
	assert.Equal(t, provider.DefaultKey, cfg.Key)
	assert.Equal(t, provider.KeyFixed, cfg.KeyMode)
	assert.Equal(t, provider.ReplyAck, cfg.ReplyMode)
	assert.Empty(t, cfg.Extra)
}

func TestParseBridgeConfig_AllKeys(t *testing.T) {
	cfg, err := provider.ParseBridgeConfig(map[string]string{
		"brokers":   "nats://a:4222,nats://b:4222",
		"topic":     "events.out",
		"backend":   "nats",
		"key":       "k",
		"key_mode":  "source",
		"reply":     "strict",
		"jetstream": "true",
	})
	require.NoError(t, err)

	assert.Equal(t, "nats", cfg.Backend)
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.Brokers)
	assert.Equal(t, "k", cfg.Key)
	assert.Equal(t, provider.KeySource, cfg.KeyMode)
	assert.Equal(t, provider.ReplyStrict, cfg.ReplyMode)
	assert.Equal(t, map[string]string{"jetstream": "true"}, cfg.Extra)
}

func TestParseBridgeConfig_Rejections(t *testing.T) {
	for name, m := range map[string]map[string]string{
		"no topic":     {"brokers": "b:9092"},
		"no brokers":   {"topic": "t"},
		"bad key mode": {"brokers": "b:9092", "topic": "t", "key_mode": "hash"},
		"bad reply":    {"brokers": "b:9092", "topic": "t", "reply": "never"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := provider.ParseBridgeConfig(m)
			assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
		})
	}
}
