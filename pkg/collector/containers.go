package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cache"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cmdutil"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/parser"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/ratelimit"
)

// Engine names a container runtime the collector can talk to.
type Engine string

const (
	EngineDocker Engine = "docker"
	EnginePodman Engine = "podman"
)

// Containers collects container inventory and per-container resource
// stats from one engine. Listing is cheap and runs every cycle;
// per-container stats invocations are rate limited and memoized because
// each one forks the engine CLI.
type Containers struct {
	sink    *metrics.Sink
	cache   *cache.Cache
	limiter *ratelimit.SlidingWindow
	log     *slog.Logger
	engine  Engine
}

// NewContainerEngines declares the shared container families once and
// returns one collector per supported engine. Both engines report into
// the same families, distinguished by the runtime label.
func NewContainerEngines(env Env) []*Containers {
	s := env.Sink
	s.Declare("node_container_count", "Number of containers", metrics.KindGauge, []string{"runtime", "state"})
	s.Declare("node_container_status", "Container status", metrics.KindGauge, []string{"name", "id", "runtime", "status"})

	lv := []string{"name", "id", "runtime"}
	s.Declare("node_container_cpu_usage_percent", "Container CPU usage", metrics.KindGauge, lv)
	s.Declare("node_container_memory_usage_bytes", "Container memory usage", metrics.KindGauge, lv)
	s.Declare("node_container_memory_limit_bytes", "Container memory limit", metrics.KindGauge, lv)

	engines := []Engine{EngineDocker, EnginePodman}
	out := make([]*Containers, 0, len(engines))
	for _, engine := range engines {
		out = append(out, &Containers{
			sink:    env.Sink,
			cache:   env.Cache,
			limiter: env.Limiter,
			log:     env.logger(string(engine)),
			engine:  engine,
		})
	}
	return out
}

func (c *Containers) Name() string { return string(c.engine) }

func (c *Containers) Requires() []probe.Capability {
	if c.engine == EnginePodman {
		return []probe.Capability{probe.CapPodman}
	}
	return []probe.Capability{probe.CapDocker}
}

func (c *Containers) Collect(ctx context.Context) error {
	containers, err := c.list(ctx)
	if err != nil {
		return fmt.Errorf("%s list: %w", c.engine, err)
	}

	runtime := string(c.engine)
	byState := make(map[string]int)
	for _, ct := range containers {
		byState[ct.State]++

		running := 0.0
		if ct.State == "running" {
			running = 1.0
		}
		status := ct.Status
		if status == "" {
			status = ct.State
		}
		c.sink.Set("node_container_status", running, ct.Name, ct.ID, runtime, status)

		if running == 1.0 {
			c.collectStats(ctx, ct)
		}
	}
	for state, n := range byState {
		c.sink.Set("node_container_count", float64(n), runtime, state)
	}

	c.log.Debug("containers collected", "count", len(containers))
	return nil
}

func (c *Containers) list(ctx context.Context) ([]parser.Container, error) {
	if c.engine == EnginePodman {
		out, err := cmdutil.Run(ctx, defaults.ToolTimeout, "podman", "ps", "-a", "--format", "json")
		if err != nil {
			return nil, err
		}
		return parser.ParsePodmanList([]byte(out)), nil
	}

	out, err := cmdutil.Run(ctx, defaults.ToolTimeout, "docker", "ps", "-a",
		"--format", "{{.ID}}\t{{.Names}}\t{{.Status}}\t{{.State}}")
	if err != nil {
		return nil, err
	}
	return parser.ParseContainerList(out), nil
}

// collectStats samples one running container's CPU and memory. A cache
// miss costs one engine CLI fork, so misses are gated by the shared
// rate limiter; a denied call leaves the previous values standing.
func (c *Containers) collectStats(ctx context.Context, ct parser.Container) {
	key := string(c.engine) + ":stats:" + ct.ID

	value, err := c.cache.Get(key, defaults.StatsCacheTTL, func() (any, error) {
		if !c.limiter.Allow() {
			return nil, errStatsRateLimited
		}
		out, err := c.runStats(ctx, ct.ID)
		if err != nil {
			return nil, err
		}
		stats, ok := parser.ParseContainerStats([]byte(out))
		if !ok {
			return nil, fmt.Errorf("unparseable stats for %s", ct.ID)
		}
		return stats, nil
	})
	if err != nil {
		if !errors.Is(err, errStatsRateLimited) {
			c.log.Debug("container stats unavailable", "container", ct.Name, "error", err)
		}
		return
	}

	stats, ok := value.(parser.ContainerStats)
	if !ok {
		return
	}

	runtime := string(c.engine)
	c.sink.Set("node_container_cpu_usage_percent", stats.CPUPercent, ct.Name, ct.ID, runtime)
	if stats.HasMemoryUsage {
		c.sink.Set("node_container_memory_usage_bytes", float64(stats.MemUsedBytes), ct.Name, ct.ID, runtime)
		c.sink.Set("node_container_memory_limit_bytes", float64(stats.MemLimitBytes), ct.Name, ct.ID, runtime)
	}
}

func (c *Containers) runStats(ctx context.Context, id string) (string, error) {
	if c.engine == EnginePodman {
		return cmdutil.Run(ctx, defaults.ToolTimeout, "podman", "stats", "--no-stream", "--format", "json", id)
	}
	return cmdutil.Run(ctx, defaults.ToolTimeout, "docker", "stats", "--no-stream", "--format", "{{json .}}", id)
}

var errStatsRateLimited = errors.New("stats call rate limited")

// engineFromName maps a collector name back to its engine; used by
// tests and kept close to the Engine constants.
func engineFromName(name string) (Engine, bool) {
	switch strings.ToLower(name) {
	case "docker":
		return EngineDocker, true
	case "podman":
		return EnginePodman, true
	}
	return "", false
}
