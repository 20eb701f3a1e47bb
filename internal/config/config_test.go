package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Order != 2 || cfg.Store.Backend != "sqlite" {
		t.Errorf("expected defaults, got order=%d backend=%s", cfg.Order, cfg.Store.Backend)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markov.yaml")
	data := `
order: 3
store:
  backend: memory
chat:
  name: polly
  verbosity: 0.5
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Order != 3 {
		t.Errorf("expected order 3, got %d", cfg.Order)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.Store.Backend)
	}
	if cfg.Chat.Name != "polly" || cfg.Chat.Verbosity != 0.5 {
		t.Errorf("unexpected chat config: %+v", cfg.Chat)
	}
	// Unset fields keep their defaults.
	if cfg.Chat.QueueSize != 32 {
		t.Errorf("expected default queue size, got %d", cfg.Chat.QueueSize)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("order: [1, 2"), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARKOV_BOT_BACKEND", "redis")
	t.Setenv("MARKOV_BOT_REDIS_ADDR", "cache:6379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != "redis" || cfg.Store.Redis.Addr != "cache:6379" {
		t.Errorf("env overrides not applied: %+v", cfg.Store)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "markov.yaml")
	cfg := Default()
	cfg.Order = 4
	cfg.Chat.Name = "echo"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Order != 4 || got.Chat.Name != "echo" {
		t.Errorf("round trip lost values: order=%d name=%s", got.Order, got.Chat.Name)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero order", func(c *Config) { c.Order = 0 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "cassandra" }},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = "postgres"; c.Store.DSN = "" }},
		{"verbosity one", func(c *Config) { c.Chat.Verbosity = 1 }},
		{"negative verbosity", func(c *Config) { c.Chat.Verbosity = -0.1 }},
		{"empty queue", func(c *Config) { c.Chat.QueueSize = 0 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
