package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIBaseURL           = "http://localhost:8080/api"
	DefaultRequestTimeout       = 15 * time.Second
	DefaultConversationInterval = 10 * time.Second
	DefaultMessageInterval      = 5 * time.Second
	DefaultCacheNamespace       = "tourchat_cache"
	DefaultDBBusyTimeout        = 5 * time.Second
	DefaultLogLevel             = "info"
)

// Duration wraps time.Duration so it can be written as "10s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents the global ~/.tourchat/config.toml.
type Config struct {
	DefaultSession           string   `toml:"default_session"`
	APIBaseURL               string   `toml:"api_base_url"`
	APIToken                 string   `toml:"api_token"`
	RequestTimeout           Duration `toml:"request_timeout"`
	ConversationPollInterval Duration `toml:"conversation_poll_interval"`
	MessagePollInterval      Duration `toml:"message_poll_interval"`
	CacheNamespace           string   `toml:"cache_namespace"`
	DBBusyTimeout            Duration `toml:"db_busy_timeout"`
	LogLevel                 string   `toml:"log_level"`
}

// Default returns a config with every field set to its default.
func Default() *Config {
	return (&Config{}).WithDefaults()
}

// WithDefaults fills zero fields with defaults and returns the receiver.
func (c *Config) WithDefaults() *Config {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.RequestTimeout.Duration <= 0 {
		c.RequestTimeout.Duration = DefaultRequestTimeout
	}
	if c.ConversationPollInterval.Duration <= 0 {
		c.ConversationPollInterval.Duration = DefaultConversationInterval
	}
	if c.MessagePollInterval.Duration <= 0 {
		c.MessagePollInterval.Duration = DefaultMessageInterval
	}
	if c.CacheNamespace == "" {
		c.CacheNamespace = DefaultCacheNamespace
	}
	if c.DBBusyTimeout.Duration <= 0 {
		c.DBBusyTimeout.Duration = DefaultDBBusyTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	return c
}

// Load reads config from the given path. Returns nil config and error if file missing.
// Fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return cfg.WithDefaults(), nil
}

// LoadOrDefault is Load but falls back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
