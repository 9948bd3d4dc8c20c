package core

import (
	"fmt"
	"strings"
)

// Config is the connection descriptor the store consumes. Unrecognized keys
// in the raw configuration are ignored during resolution, not rejected.
type Config struct {
	// Driver selects the registered backend, e.g. "postgres" or "sqlite".
	Driver string `koanf:"driver" mapstructure:"driver"`
	// DSN is the engine-specific connection string.
	DSN string `koanf:"dsn" mapstructure:"dsn"`
	// QueryLogLevel feeds the query logger: "none", "error", or "debug".
	QueryLogLevel string `koanf:"query_log_level" mapstructure:"query_log_level"`
	// OptimizeThreshold triggers storage optimization on embedded engines
	// after that many mutating units of work. Zero disables it.
	OptimizeThreshold int `koanf:"optimize_threshold" mapstructure:"optimize_threshold"`
	// PingTimeoutSeconds bounds the liveness probe.
	PingTimeoutSeconds int `koanf:"ping_timeout_seconds" mapstructure:"ping_timeout_seconds"`
	// EnablePurge must be set for PurgeTables to do anything. Test harness
	// flag, never on in production configs.
	EnablePurge bool `koanf:"enable_purge" mapstructure:"enable_purge"`
}

func DefaultConfig() Config {
	return Config{
		Driver:             "sqlite",
		QueryLogLevel:      "error",
		PingTimeoutSeconds: 5,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Driver) == "" {
		return fmt.Errorf("core: driver is required")
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("core: dsn is required")
	}
	switch strings.TrimSpace(strings.ToLower(c.QueryLogLevel)) {
	case "", "none", "error", "debug":
	default:
		return fmt.Errorf("core: invalid query_log_level %q", c.QueryLogLevel)
	}
	if c.OptimizeThreshold < 0 {
		return fmt.Errorf("core: optimize_threshold must not be negative")
	}
	return nil
}
