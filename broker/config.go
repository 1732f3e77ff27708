package broker

import (
	"strconv"
	"strings"
	"time"
)

// Config holds broker-agnostic configuration.
// Broker plugins extract the fields they need.
type Config struct {
	// Brokers is a list of broker addresses (e.g., "localhost:9092").
	Brokers []string

	// Topic is the destination topic, subject, queue or stream.
	Topic string

	// ClientID names the connection towards the broker, where the
	// protocol has such a notion. Forwarding workers set it to the
	// instance id.
	ClientID string

	// Extra holds plugin-specific configuration taken verbatim from the
	// provisioning request.
	Extra map[string]string
}

// ParseBrokers splits a comma-separated connection string, dropping empty
// entries and surrounding whitespace.
func ParseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// String returns Extra[key] and whether it was set to a non-empty value.
func (c Config) String(key string) (string, bool) {
	v, ok := c.Extra[key]
	return v, ok && v != ""
}

// Int returns Extra[key] parsed as an int. Unparseable values are ignored.
func (c Config) Int(key string) (int, bool) {
	v, ok := c.String(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bool returns Extra[key] parsed with strconv.ParseBool.
func (c Config) Bool(key string) (bool, bool) {
	v, ok := c.String(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Duration returns Extra[key] parsed with time.ParseDuration.
func (c Config) Duration(key string) (time.Duration, bool) {
	v, ok := c.String(key)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
