package core

import (
	"context"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Driver != "sqlite" {
		t.Fatalf("expected sqlite default driver, got %q", cfg.Driver)
	}
	if cfg.QueryLogLevel != "error" {
		t.Fatalf("expected error default query log level, got %q", cfg.QueryLogLevel)
	}
	if cfg.PingTimeoutSeconds != 5 {
		t.Fatalf("expected 5s default ping timeout, got %d", cfg.PingTimeoutSeconds)
	}
	if cfg.EnablePurge {
		t.Fatalf("expected purge disabled by default")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Driver: "sqlite", DSN: "file:test.db"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing driver", Config{DSN: "file:test.db"}},
		{"missing dsn", Config{Driver: "sqlite"}},
		{"bad log level", Config{Driver: "sqlite", DSN: "file:test.db", QueryLogLevel: "verbose"}},
		{"negative threshold", Config{Driver: "sqlite", DSN: "file:test.db", OptimizeThreshold: -1}},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestCfgxConfigProvider_LoadOverlaysDefaults(t *testing.T) {
	loader := NewStaticRawConfigLoader(map[string]any{
		"driver": "postgres",
		"dsn":    "postgres://localhost/indieauth",
	})
	provider := NewCfgxConfigProvider(loader)

	defaults := DefaultConfig()
	defaults.DSN = "file:fallback.db"

	cfg, err := provider.Load(context.Background(), defaults)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Driver != "postgres" {
		t.Fatalf("expected loaded driver to win, got %q", cfg.Driver)
	}
	if cfg.DSN != "postgres://localhost/indieauth" {
		t.Fatalf("expected loaded dsn to win, got %q", cfg.DSN)
	}
	if cfg.QueryLogLevel != "error" {
		t.Fatalf("expected default query log level to persist, got %q", cfg.QueryLogLevel)
	}
}

func TestCfgxConfigProvider_LoadRejectsInvalid(t *testing.T) {
	loader := NewStaticRawConfigLoader(map[string]any{
		"driver":          "sqlite",
		"dsn":             "file:test.db",
		"query_log_level": "chatty",
	})
	provider := NewCfgxConfigProvider(loader)

	if _, err := provider.Load(context.Background(), DefaultConfig()); err == nil {
		t.Fatalf("expected invalid query log level to fail load")
	}
}

func TestGoOptionsResolver_Precedence(t *testing.T) {
	defaults := DefaultConfig()
	defaults.DSN = "file:defaults.db"

	loaded := Config{
		Driver: "postgres",
		DSN:    "postgres://localhost/loaded",
	}
	runtime := Config{
		DSN:         "postgres://localhost/runtime",
		EnablePurge: true,
	}

	resolved, err := GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Driver != "postgres" {
		t.Fatalf("expected loaded driver, got %q", resolved.Driver)
	}
	if resolved.DSN != "postgres://localhost/runtime" {
		t.Fatalf("expected runtime dsn to win, got %q", resolved.DSN)
	}
	if !resolved.EnablePurge {
		t.Fatalf("expected runtime purge flag to win")
	}
	if resolved.QueryLogLevel != "error" {
		t.Fatalf("expected default query log level to survive, got %q", resolved.QueryLogLevel)
	}
}

func TestGoOptionsResolver_RejectsInvalidMerge(t *testing.T) {
	defaults := DefaultConfig()
	defaults.DSN = "file:defaults.db"

	if _, err := (GoOptionsResolver{}).Resolve(defaults, Config{QueryLogLevel: "yell"}, Config{}); err == nil {
		t.Fatalf("expected invalid merged config to fail")
	}
}

func TestResolveLogger_NeverNil(t *testing.T) {
	provider, logger := ResolveLogger(nil, nil)
	if provider == nil {
		t.Fatalf("expected fallback provider")
	}
	if logger == nil {
		t.Fatalf("expected fallback logger")
	}
}
