// Package config loads flight-server settings: defaults, then an optional YAML
// file, then command-line overrides applied by the caller.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ChuLiYu/flight-server/internal/worker"
)

// Config represents the complete system configuration structure
type Config struct {
	Server struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		GreetOnConnect  bool          `yaml:"greet_on_connect"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Pool struct {
		Threads       int    `yaml:"threads"`
		QueueCapacity int    `yaml:"queue_capacity"`
		Overflow      string `yaml:"overflow"`
	} `yaml:"pool"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`

	Admin struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"admin"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var c Config

	c.Server.Host = "127.0.0.1"
	c.Server.Port = 5000
	c.Server.GreetOnConnect = true
	c.Server.ShutdownTimeout = 5 * time.Second

	c.Pool.Threads = 4
	c.Pool.QueueCapacity = 0
	c.Pool.Overflow = "block"

	c.Metrics.Enabled = false
	c.Metrics.Port = 9090

	c.Admin.Enabled = false
	c.Admin.Port = 50051

	c.Log.Level = "info"
	c.Log.Format = "text"

	return &c
}

// Load reads path on top of the defaults. An empty path returns the defaults.
// Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return cfg, nil
}

// Addr returns the TCP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// OverflowPolicy maps pool.overflow to the worker policy. Call Validate first.
func (c *Config) OverflowPolicy() worker.OverflowPolicy {
	if strings.EqualFold(c.Pool.Overflow, "reject") {
		return worker.OverflowReject
	}
	return worker.OverflowBlock
}

// LogLevel maps log.level to a slog level. Call Validate first.
func (c *Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
