// Package pgnotify carries session changes over Postgres LISTEN/NOTIFY.
package pgnotify

import "time"

// DefaultChannel matches the channel the change triggers notify on.
const DefaultChannel = "planpoker_changes"

type Config struct {
	DatabaseURL          string        // Postgres DSN for LISTEN/NOTIFY
	Channel              string        // Channel name to LISTEN on
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
	PingInterval         time.Duration
	AckTimeout           time.Duration // How long a subscription may take to start listening
	MaxRetries           int
	RetryDelay           time.Duration
}

func DefaultConfig() Config {
	return Config{
		Channel:              DefaultChannel,
		MinReconnectInterval: 10 * time.Second,
		MaxReconnectInterval: time.Minute,
		PingInterval:         90 * time.Second,
		AckTimeout:           10 * time.Second,
		MaxRetries:           3,
		RetryDelay:           200 * time.Millisecond,
	}
}

// withDefaults fills zero durations and the channel name from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Channel == "" {
		c.Channel = d.Channel
	}
	if c.MinReconnectInterval <= 0 {
		c.MinReconnectInterval = d.MinReconnectInterval
	}
	if c.MaxReconnectInterval <= 0 {
		c.MaxReconnectInterval = d.MaxReconnectInterval
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = d.AckTimeout
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	return c
}
