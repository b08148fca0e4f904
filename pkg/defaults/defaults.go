// Package defaults provides centralized configuration constants for the exporter.
//
// This package defines timeout values, intervals, and other configuration
// defaults used across the codebase. Centralizing these values ensures
// consistency and makes tuning easier.
package defaults

import "time"

// Collection defaults for the sampling loop.
const (
	// CollectionInterval is the default time between sampling cycles.
	CollectionInterval = 15 * time.Second

	// MaxWorkers is the default size of the parallel collection pool.
	MaxWorkers = 4

	// CollectorTimeout is the outer per-collector timeout. A collector
	// exceeding it is abandoned by the scheduler but not forcibly killed.
	CollectorTimeout = 30 * time.Second

	// CycleBackoff is the pause after a cycle-level failure before the
	// next cycle is attempted.
	CycleBackoff = 5 * time.Second

	// DrainTimeout bounds how long shutdown waits for in-flight
	// collectors before abandoning them.
	DrainTimeout = 10 * time.Second
)

// External tool invocation timeouts. Every probe and collector that shells
// out uses these as hard per-invocation bounds, independent of the
// scheduler's outer timeout.
const (
	// ProbeTimeout bounds a single capability probe invocation.
	ProbeTimeout = 2 * time.Second

	// ToolTimeout bounds a single external tool invocation during
	// collection.
	ToolTimeout = 5 * time.Second

	// SlowToolTimeout bounds tools known to be slow (smartctl, ipmitool,
	// systemctl list-units on large hosts).
	SlowToolTimeout = 10 * time.Second
)

// Cache and rate limiting defaults for expensive operations.
const (
	// CacheTTL is the default freshness window for memoized collection
	// results.
	CacheTTL = 60 * time.Second

	// StatsCacheTTL is the freshness window for per-container stats.
	StatsCacheTTL = 30 * time.Second

	// SmartCacheTTL is the freshness window for per-device SMART reports.
	// SMART data changes slowly and smartctl can wake sleeping disks.
	SmartCacheTTL = 5 * time.Minute

	// ScanCacheTTL is the freshness window for device discovery scans.
	ScanCacheTTL = 10 * time.Minute

	// RateLimitCalls is the number of guarded subprocess invocations
	// admitted per RateLimitPeriod.
	RateLimitCalls = 10

	// RateLimitPeriod is the trailing window for subprocess admission.
	RateLimitPeriod = 60 * time.Second
)

// Server defaults for the metrics HTTP surface.
const (
	// MetricsPort is the default listen port for the scrape endpoint.
	MetricsPort = 9101

	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)
