// Package config loads markov-bot configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all markov-bot configuration.
type Config struct {
	// Order is the number of words in a chain state. It must match the
	// order the store was created with.
	Order int `yaml:"order"`
	// MaxWords caps generated sentences. 0 means unlimited.
	MaxWords int `yaml:"max_words"`

	Store     StoreConfig     `yaml:"store"`
	Chat      ChatConfig      `yaml:"chat"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StoreConfig selects and configures the weight store.
type StoreConfig struct {
	Backend string      `yaml:"backend"` // memory, sqlite, postgres, redis
	Path    string      `yaml:"path"`    // sqlite database file
	DSN     string      `yaml:"dsn"`     // postgres connection string
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ChatConfig configures the chat adapter.
type ChatConfig struct {
	Name       string  `yaml:"name"`        // mention handle, without the @
	Verbosity  float64 `yaml:"verbosity"`   // chance of replying unprompted, in [0, 1)
	ReplyRate  float64 `yaml:"reply_rate"`  // replies per second, 0 = unlimited
	ReplyBurst int     `yaml:"reply_burst"`
	QueueSize  int     `yaml:"queue_size"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Backends lists the supported store backends.
var Backends = map[string]bool{
	"memory":   true,
	"sqlite":   true,
	"postgres": true,
	"redis":    true,
}

// Default returns the default configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Order:    2,
		MaxWords: 100,
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    filepath.Join(home, ".markov-bot", "markov.db"),
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "markov-bot:",
			},
		},
		Chat: ChatConfig{
			Name:       "markov",
			Verbosity:  0.05,
			ReplyRate:  1,
			ReplyBurst: 3,
			QueueSize:  32,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MARKOV_BOT_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("MARKOV_BOT_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("MARKOV_BOT_POSTGRES_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("MARKOV_BOT_REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("MARKOV_BOT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Order < 1 {
		return fmt.Errorf("order must be at least 1, got %d", c.Order)
	}
	if !Backends[c.Store.Backend] {
		return fmt.Errorf("unknown store backend %q (valid: memory, sqlite, postgres, redis)", c.Store.Backend)
	}
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("sqlite backend needs store.path")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("postgres backend needs store.dsn")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis backend needs store.redis.addr")
		}
	}
	if c.MaxWords < 0 {
		return fmt.Errorf("max_words must not be negative")
	}
	if c.Chat.Verbosity < 0 || c.Chat.Verbosity >= 1 {
		return fmt.Errorf("verbosity must be in range 0..1, got %v", c.Chat.Verbosity)
	}
	if c.Chat.ReplyRate < 0 {
		return fmt.Errorf("reply_rate must not be negative")
	}
	if c.Chat.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}
