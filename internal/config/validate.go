package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if err := validatePort("server.port", c.Server.Port, true); err != nil {
		return err
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must be >= 0, got %s", c.Server.ShutdownTimeout)
	}

	if c.Pool.Threads < 1 {
		return fmt.Errorf("pool.threads must be >= 1, got %d", c.Pool.Threads)
	}
	if c.Pool.QueueCapacity < 0 {
		return fmt.Errorf("pool.queue_capacity must be >= 0, got %d", c.Pool.QueueCapacity)
	}
	switch strings.ToLower(c.Pool.Overflow) {
	case "block", "reject":
	default:
		return fmt.Errorf("pool.overflow must be block or reject, got %q", c.Pool.Overflow)
	}

	if c.Metrics.Enabled {
		if err := validatePort("metrics.port", c.Metrics.Port, false); err != nil {
			return err
		}
	}
	if c.Admin.Enabled {
		if err := validatePort("admin.port", c.Admin.Port, false); err != nil {
			return err
		}
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// validatePort accepts 1-65535, plus 0 (pick any free port) when allowZero.
func validatePort(name string, port int, allowZero bool) error {
	if port == 0 && allowZero {
		return nil
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
	}
	return nil
}
