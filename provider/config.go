package provider

import (
	"fmt"
	"strings"

	"github.com/miladsoleymani/brokerbridge/broker"
	"github.com/miladsoleymani/brokerbridge/core"
)

// Configuration keys recognised in a provisioning request. Any other key is
// handed to the broker plugin as broker.Config.Extra.
const (
	KeyBrokers = "brokers"
	KeyTopic   = "topic"
	KeyBackend = "backend"
	KeyKey     = "key"
	KeyKeyMode = "key_mode"
	KeyReply   = "reply"
)

const (
	DefaultBackend = "kafka"
	DefaultKey     = "some_key"
)

// KeyMode selects how the broker message key is chosen.
type KeyMode int

const (
	// KeyFixed uses BridgeConfig.Key for every message.
	KeyFixed KeyMode = iota
	// KeySource uses the id of the instance that sent the event.
	KeySource
)

// ReplyMode selects what a call event is answered with.
type ReplyMode int

const (
	// ReplyAck answers every call with an empty reply once the publish was
	// attempted, whatever its outcome.
	ReplyAck ReplyMode = iota
	// ReplyStrict answers with an error reply when the publish failed.
	ReplyStrict
)

// BridgeConfig is the validated configuration of one bridge instance.
type BridgeConfig struct {
	Backend   string
	Brokers   []string
	Topic     string
	Key       string
	KeyMode   KeyMode
	ReplyMode ReplyMode
	Extra     map[string]string
}

// ParseBridgeConfig validates a provisioning key/value set. Both "brokers"
// and "topic" must be present and non-empty.
func ParseBridgeConfig(m map[string]string) (BridgeConfig, error) {
	brokers := broker.ParseBrokers(m[KeyBrokers])
	topic := strings.TrimSpace(m[KeyTopic])
	if len(brokers) == 0 || topic == "" {
		return BridgeConfig{}, core.NewInvalidConfiguration("One of the fields 'brokers' or 'topic' is missing")
	}

	cfg := BridgeConfig{
		Backend: DefaultBackend,
		Brokers: brokers,
		Topic:   topic,
		Key:     DefaultKey,
		Extra:   make(map[string]string),
	}
	if v := strings.TrimSpace(m[KeyBackend]); v != "" {
		cfg.Backend = v
	}
	if v, ok := m[KeyKey]; ok && v != "" {
		cfg.Key = v
	}

	switch v := m[KeyKeyMode]; v {
	case "", "fixed":
		cfg.KeyMode = KeyFixed
	case "source":
		cfg.KeyMode = KeySource
	default:
		return BridgeConfig{}, core.NewInvalidConfiguration(fmt.Sprintf("unsupported key_mode %q", v))
	}

	switch v := m[KeyReply]; v {
	case "", "ack":
		cfg.ReplyMode = ReplyAck
	case "strict":
		cfg.ReplyMode = ReplyStrict
	default:
		return BridgeConfig{}, core.NewInvalidConfiguration(fmt.Sprintf("unsupported reply mode %q", v))
	}

	for k, v := range m {
		switch k {
		case KeyBrokers, KeyTopic, KeyBackend, KeyKey, KeyKeyMode, KeyReply:
		default:
			cfg.Extra[k] = v
		}
	}
	return cfg, nil
}

// brokerConfig returns the plugin-facing view of cfg for instance id.
func (c BridgeConfig) brokerConfig(id core.InstanceID) broker.Config {
	return broker.Config{
		Brokers:  c.Brokers,
		Topic:    c.Topic,
		ClientID: "brokerbridge-" + id.FunctionID.String(),
		Extra:    c.Extra,
	}
}
