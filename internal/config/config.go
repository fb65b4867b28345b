// Package config loads realtime-tail's configuration from a file and the
// environment via viper.
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	WebSocketURL   string        `mapstructure:"websocket_url"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	BackoffCap     time.Duration `mapstructure:"backoff_cap"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	ConnectRetries int           `mapstructure:"connect_retries"`
	LogLevel       string        `mapstructure:"log_level"`
	EventTypes     []string      `mapstructure:"event_types"`
}

const (
	DefaultBackoffBase    = time.Second
	DefaultBackoffCap     = 30 * time.Second
	DefaultConnectRetries = 5
	DefaultLogLevel       = "info"

	envPrefix = "REALTIME"
)

// Load reads the configuration file at path. When path is empty only
// defaults and REALTIME_* environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("backoff_base", DefaultBackoffBase)
	v.SetDefault("backoff_cap", DefaultBackoffCap)
	v.SetDefault("max_attempts", 0)
	v.SetDefault("connect_retries", DefaultConnectRetries)
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, validate(&cfg)
}

func validate(cfg *Config) error {
	if cfg.WebSocketURL == "" {
		return errors.New("missing websocket_url in configuration")
	}
	u, err := url.Parse(cfg.WebSocketURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return errors.New("websocket_url must use the ws or wss scheme")
	}
	if cfg.BackoffBase <= 0 {
		return errors.New("invalid backoff_base")
	}
	if cfg.BackoffCap < cfg.BackoffBase {
		return errors.New("backoff_cap must be at least backoff_base")
	}
	if cfg.MaxAttempts < 0 {
		return errors.New("invalid max_attempts")
	}
	if cfg.ConnectRetries < 1 {
		return errors.New("invalid connect_retries")
	}
	return nil
}
