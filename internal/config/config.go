package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all tunables for the loader.
type Config struct {
	HTTP    HTTPConfig
	Decode  DecodeConfig
	Logging LogConfig
}

// HTTPConfig holds settings for the default fetch client.
type HTTPConfig struct {
	Timeout      time.Duration `envconfig:"HTMLENTRY_HTTP_TIMEOUT" default:"30s"`
	RetryMax     int           `envconfig:"HTMLENTRY_HTTP_RETRY_MAX" default:"3"`
	RetryWaitMin time.Duration `envconfig:"HTMLENTRY_HTTP_RETRY_WAIT_MIN" default:"1s"`
	RetryWaitMax time.Duration `envconfig:"HTMLENTRY_HTTP_RETRY_WAIT_MAX" default:"30s"`
	RateLimitRPS float64       `envconfig:"HTMLENTRY_HTTP_RATE_LIMIT_RPS" default:"0"`
	UserAgent    string        `envconfig:"HTMLENTRY_HTTP_USER_AGENT" default:"htmlentry/1.0"`
}

// DecodeConfig holds text decoding settings.
type DecodeConfig struct {
	// Auto enables charset detection and conversion of fetched documents
	// and stylesheets into UTF-8.
	Auto bool `envconfig:"HTMLENTRY_AUTO_DECODE" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"HTMLENTRY_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"HTMLENTRY_LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			RetryMax:     3,
			RetryWaitMin: 1 * time.Second,
			RetryWaitMax: 30 * time.Second,
			UserAgent:    "htmlentry/1.0",
		},
		Decode: DecodeConfig{
			Auto: true,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}
