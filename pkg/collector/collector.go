// Package collector implements the metric collectors. Each collector
// owns one concern (base system stats, sensors, containers, storage
// health), declares its metric families at construction time, and
// writes fresh values into the shared sink once per scheduler cycle.
//
// A collector never decides on its own whether it should run: the
// capability set detected at startup gates eligibility, and the
// scheduler owns timing, concurrency, and outcome accounting.
package collector

import (
	"context"
	"log/slog"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cache"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/ratelimit"
)

// Collector is one unit of metric collection.
type Collector interface {
	// Name identifies the collector in logs and outcome metrics.
	Name() string

	// Requires lists the capabilities that must all be present for this
	// collector to be eligible.
	Requires() []probe.Capability

	// Collect samples the underlying source and writes current values
	// into the sink. Partial data with an error is valid: whatever was
	// written stays written.
	Collect(ctx context.Context) error
}

// Env carries the shared dependencies every collector construction
// receives.
type Env struct {
	Sink    *metrics.Sink
	Cache   *cache.Cache
	Limiter *ratelimit.SlidingWindow
	Log     *slog.Logger
}

func (e Env) logger(name string) *slog.Logger {
	log := e.Log
	if log == nil {
		log = slog.Default()
	}
	return log.With("collector", name)
}

// All constructs every known collector against the shared environment.
// Construction declares metric families; it never touches the host.
func All(env Env) []Collector {
	all := []Collector{
		NewBase(env),
		NewSensors(env),
		NewSystemd(env),
		NewMdadm(env),
	}
	for _, c := range NewContainerEngines(env) {
		all = append(all, c)
	}
	return append(all,
		NewZFS(env),
		NewSmart(env),
		NewIPMI(env),
		NewNvidiaGPU(env),
		NewUPS(env),
	)
}

// Filter returns the collectors whose required capabilities are all
// present in the detected set. Ineligible collectors are logged once
// and never consulted again.
func Filter(all []Collector, caps probe.Set, log *slog.Logger) []Collector {
	if log == nil {
		log = slog.Default()
	}

	eligible := make([]Collector, 0, len(all))
	for _, c := range all {
		if caps.HasAll(c.Requires()...) {
			eligible = append(eligible, c)
			continue
		}
		log.Debug("collector disabled, capability not detected",
			"collector", c.Name(),
			"requires", c.Requires())
	}
	return eligible
}
