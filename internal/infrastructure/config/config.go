package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all server configuration.
type Config struct {
	Server    ServerConfig
	Screen    ScreenConfig
	Broker    BrokerConfig
	Themes    ThemeConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds the HTTP/WebSocket listener configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"9100"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// ScreenConfig holds the initial screen geometry.
type ScreenConfig struct {
	Width  int `envconfig:"SCREEN_WIDTH" default:"1024"`
	Height int `envconfig:"SCREEN_HEIGHT" default:"768"`
}

// BrokerConfig holds shared buffer broker configuration.
type BrokerConfig struct {
	LeaseTTL time.Duration `envconfig:"BUFFER_LEASE_TTL" default:"30s"`
}

// ThemeConfig holds theme registry configuration.
type ThemeConfig struct {
	Dir    string `envconfig:"THEME_DIR" default:""`
	Active string `envconfig:"THEME_ACTIVE" default:"Default"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
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
		Server: ServerConfig{
			Port: "9100",
			Host: "0.0.0.0",
		},
		Screen: ScreenConfig{
			Width:  1024,
			Height: 768,
		},
		Broker: BrokerConfig{
			LeaseTTL: 30 * time.Second,
		},
		Themes: ThemeConfig{
			Active: "Default",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
