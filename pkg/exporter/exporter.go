// Package exporter wires the pieces together: capability detection,
// the metric sink, the eligible collectors, the collection scheduler,
// and the HTTP server, running until interrupted.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cache"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/collector"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/config"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/logging"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/ratelimit"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/scheduler"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/server"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/version"
)

const moduleName = "proxmox-node-exporter"

// Run starts the exporter against the process-wide Prometheus registry
// and blocks until the context is cancelled or a component fails.
func Run(ctx context.Context, cfg *config.Config) error {
	reg, ok := prometheus.DefaultRegisterer.(*prometheus.Registry)
	if !ok {
		return fmt.Errorf("default registerer is not a registry")
	}
	return RunWithRegistry(ctx, cfg, reg)
}

// RunWithRegistry is Run against an explicit registry.
func RunWithRegistry(ctx context.Context, cfg *config.Config, reg *prometheus.Registry) error {
	logging.SetDefaultStructuredLoggerWithLevel(moduleName, version.Version(), cfg.LogLevel)
	log := logging.NewStructuredLogger(moduleName, version.Version(), cfg.LogLevel)

	log.Info("starting exporter",
		"version", version.Version(),
		"commit", version.Commit(),
		"port", cfg.Port,
		"interval", cfg.Interval(),
		"parallel", cfg.Parallel,
		"workers", cfg.Workers)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ready atomic.Bool

	// Capability detection runs exactly once; the frozen set gates
	// collector eligibility for the process lifetime.
	caps := probe.NewRegistry(defaults.ProbeTimeout).Detect(ctx)
	log.Info("capability detection complete", "enabled", caps.Enabled())

	sink := metrics.NewSink(reg)
	declareIdentity(sink, caps)

	env := collector.Env{
		Sink:    sink,
		Cache:   cache.New(defaults.CacheTTL),
		Limiter: ratelimit.New(defaults.RateLimitCalls, defaults.RateLimitPeriod),
		Log:     log,
	}
	eligible := collector.Filter(collector.All(env), caps, log)
	log.Info("collectors ready", "eligible", len(eligible))

	sched := scheduler.New(scheduler.Config{
		Interval: cfg.Interval(),
		Parallel: cfg.Parallel,
		Workers:  cfg.Workers,
	}, eligible, sink, env.Cache, log)

	srvCfg := server.DefaultConfig()
	srvCfg.Address = cfg.Address
	srvCfg.Port = cfg.Port
	srv := server.New(srvCfg, reg, ready.Load, log)

	ready.Store(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error { return sched.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("exporter: %w", err)
	}
	log.Info("exporter stopped")
	return nil
}

// declareIdentity publishes the exporter's build info and the frozen
// capability set. Every capability in the closed set gets a series, so
// absence is visible as 0 rather than a missing metric.
func declareIdentity(sink *metrics.Sink, caps probe.Set) {
	sink.DeclareInfo("node_exporter_info", "Exporter build information")

	hostname, _ := os.Hostname()
	sink.SetInfo("node_exporter_info", map[string]string{
		"version":  version.Version(),
		"commit":   version.Commit(),
		"hostname": hostname,
	})

	sink.Declare("node_exporter_feature_enabled",
		"Whether a capability was detected at startup", metrics.KindGauge, []string{"feature"})
	for _, c := range probe.All() {
		enabled := 0.0
		if caps.Has(c) {
			enabled = 1.0
		}
		sink.Set("node_exporter_feature_enabled", enabled, string(c))
	}
}
