// Package config loads the brokerbridge daemon configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/miladsoleymani/brokerbridge/provider"
)

// EnvPath names the environment variable consulted when no path is given.
const EnvPath = "CONFIG_PATH"

// Defaults.
const (
	DefaultLogLevel        = "info"
	DefaultMetricsAddr     = ":9090"
	DefaultAPIAddr         = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
)

// Config represents the top-level structure of the daemon's YAML file.
type Config struct {
	// NodeID is the dataplane node the instances are allocated on. A random
	// one is drawn when empty.
	NodeID          string           `yaml:"node_id"`
	LogLevel        string           `yaml:"log_level"`
	MetricsAddr     string           `yaml:"metrics_addr"`
	APIAddr         string           `yaml:"api_addr"`
	ShutdownTimeout time.Duration    `yaml:"shutdown_timeout"`
	Instances       []InstanceConfig `yaml:"instances"`
}

// InstanceConfig is a bridge instance provisioned at startup.
type InstanceConfig struct {
	Name          string            `yaml:"name"`
	ClassType     string            `yaml:"class_type"`
	Configuration map[string]string `yaml:"configuration"`
}

// Specification converts c into a provisioning request.
func (c InstanceConfig) Specification() provider.InstanceSpecification {
	return provider.InstanceSpecification{
		ClassType:     c.ClassType,
		Configuration: c.Configuration,
	}
}

// Default returns a configuration with every default applied and no instances.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML file at path, or at $CONFIG_PATH when path is empty,
// applies defaults and validates the result. With neither set the defaults
// are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = DefaultMetricsAddr
	}
	if c.APIAddr == "" {
		c.APIAddr = DefaultAPIAddr
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks the node id, the log level and every startup instance.
func (c *Config) Validate() error {
	var errs []error
	if c.NodeID != "" {
		if _, err := uuid.Parse(c.NodeID); err != nil {
			errs = append(errs, fmt.Errorf("node_id: %w", err))
		}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	names := make(map[string]struct{}, len(c.Instances))
	for i, inst := range c.Instances {
		label := inst.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if inst.Name != "" {
			if _, dup := names[inst.Name]; dup {
				errs = append(errs, fmt.Errorf("instances[%s]: duplicate name", label))
			}
			names[inst.Name] = struct{}{}
		}
		if _, err := provider.ParseBridgeConfig(inst.Configuration); err != nil {
			errs = append(errs, fmt.Errorf("instances[%s]: %w", label, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Node returns the parsed node id, or a fresh random one when unset.
func (c *Config) Node() uuid.UUID {
	if id, err := uuid.Parse(strings.TrimSpace(c.NodeID)); err == nil {
		return id
	}
	return uuid.New()
}

// Level returns the zerolog level, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
