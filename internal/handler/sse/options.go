package sse

import "time"

// Config tunes one event stream. Zero fields take the package defaults.
type Config struct {
	KeepAliveInterval time.Duration // comment frame cadence, below common proxy idle timeouts
	RetryInterval     time.Duration // reconnect delay advertised to the client
}

const (
	defaultKeepAlive = 10 * time.Second
	defaultRetry     = 3 * time.Second
)

// DefaultConfig returns the stream settings used when none are configured.
func DefaultConfig() *Config {
	return &Config{KeepAliveInterval: defaultKeepAlive, RetryInterval: defaultRetry}
}

func (c Config) withDefaults() Config {
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = defaultKeepAlive
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultRetry
	}
	return c
}

// Resolved returns c with zero fields filled in. A nil receiver yields the defaults.
func (c *Config) Resolved() Config {
	if c == nil {
		return *DefaultConfig()
	}
	return c.withDefaults()
}
