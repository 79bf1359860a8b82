package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/planpoker/go/internal/realtime/natsbus"
	"github.com/mcdev12/planpoker/go/internal/realtime/pgnotify"
	"github.com/mcdev12/planpoker/go/internal/realtime/wsgateway"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		IdleTimeout     time.Duration `yaml:"idle_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`

	Realtime struct {
		Channel      string        `yaml:"channel"`
		PingInterval time.Duration `yaml:"ping_interval"`
		MaxRetries   int           `yaml:"max_retries"`
		RetryDelay   time.Duration `yaml:"retry_delay"`
	} `yaml:"realtime"`

	Gateway struct {
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxMessageSize int64         `yaml:"max_message_size"`
	} `yaml:"gateway"`

	NATS struct {
		// URL enables publishing changes to NATS when set.
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.IdleTimeout = 120 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Server.AllowedOrigins = []string{"*"}

	notify := pgnotify.DefaultConfig()
	cfg.Realtime.Channel = notify.Channel
	cfg.Realtime.PingInterval = notify.PingInterval
	cfg.Realtime.MaxRetries = notify.MaxRetries
	cfg.Realtime.RetryDelay = notify.RetryDelay

	gw := wsgateway.DefaultConnectionConfig()
	cfg.Gateway.PingInterval = gw.PingInterval
	cfg.Gateway.MaxMessageSize = gw.MaxMessageSize

	cfg.NATS.SubjectPrefix = natsbus.DefaultConfig().SubjectPrefix
	return &cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file at path over the defaults. A missing file
// leaves the defaults in place. Environment variables win over both.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Realtime.Channel = getEnv("PLANPOKER_NOTIFY_CHANNEL", config.Realtime.Channel)
	config.Realtime.MaxRetries = getEnvAsInt("PLANPOKER_PUBLISH_RETRIES", config.Realtime.MaxRetries)
	config.Realtime.RetryDelay = getEnvAsDuration("PLANPOKER_PUBLISH_RETRY_DELAY", config.Realtime.RetryDelay)
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	config.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", config.NATS.SubjectPrefix)

	return config, nil
}

func (c *Config) notifyConfig(databaseURL string) pgnotify.Config {
	cfg := pgnotify.DefaultConfig()
	cfg.DatabaseURL = databaseURL
	cfg.Channel = c.Realtime.Channel
	cfg.PingInterval = c.Realtime.PingInterval
	cfg.MaxRetries = c.Realtime.MaxRetries
	cfg.RetryDelay = c.Realtime.RetryDelay
	return cfg
}

func (c *Config) gatewayConfig() wsgateway.ConnectionConfig {
	cfg := wsgateway.DefaultConnectionConfig()
	if c.Gateway.PingInterval > 0 {
		cfg.PingInterval = c.Gateway.PingInterval
	}
	if c.Gateway.MaxMessageSize > 0 {
		cfg.MaxMessageSize = c.Gateway.MaxMessageSize
	}
	return cfg
}

func (c *Config) natsConfig() natsbus.Config {
	cfg := natsbus.DefaultConfig()
	cfg.URL = c.NATS.URL
	if c.NATS.SubjectPrefix != "" {
		cfg.SubjectPrefix = c.NATS.SubjectPrefix
	}
	return cfg
}
