// Package config loads exporter settings from defaults, an optional
// YAML file, and environment overrides, in that order of precedence
// (environment wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
)

// Config is the full exporter configuration.
type Config struct {
	// Address and Port for the metrics HTTP server.
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`

	// IntervalSeconds between collection cycles.
	IntervalSeconds int `yaml:"interval_seconds"`

	// Parallel selects pooled collection with Workers concurrent
	// collectors.
	Parallel bool `yaml:"parallel"`
	Workers  int  `yaml:"workers"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		Port:            defaults.MetricsPort,
		IntervalSeconds: int(defaults.CollectionInterval / time.Second),
		Parallel:        true,
		Workers:         defaults.MaxWorkers,
		LogLevel:        "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// if given, then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("EXPORTER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("COLLECTION_INTERVAL"); v != "" {
		var interval int
		if _, err := fmt.Sscanf(v, "%d", &interval); err == nil {
			c.IntervalSeconds = interval
		}
	}
	if v := os.Getenv("PARALLEL_COLLECTORS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Parallel = b
		}
	}
	if v := os.Getenv("MAX_WORKERS"); v != "" {
		var workers int
		if _, err := fmt.Sscanf(v, "%d", &workers); err == nil {
			c.Workers = workers
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate rejects configurations the exporter cannot run with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.IntervalSeconds < 1 {
		return fmt.Errorf("interval must be at least 1 second, got %d", c.IntervalSeconds)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// Interval returns the collection interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
