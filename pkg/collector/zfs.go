package collector

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cmdutil"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/parser"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
)

// ZFS collects pool health from zpool and ARC statistics from the
// kernel's kstat file.
type ZFS struct {
	sink *metrics.Sink
	log  *slog.Logger

	arcstatsPath string
}

func NewZFS(env Env) *ZFS {
	s := env.Sink

	pool := []string{"pool"}
	s.Declare("node_zfs_zpool_health", "ZFS pool health (0=online, 1=degraded, 2=faulted)", metrics.KindGauge, pool)
	s.Declare("node_zfs_zpool_size_bytes", "ZFS pool size", metrics.KindGauge, pool)
	s.Declare("node_zfs_zpool_allocated_bytes", "ZFS pool allocated", metrics.KindGauge, pool)
	s.Declare("node_zfs_zpool_free_bytes", "ZFS pool free", metrics.KindGauge, pool)
	s.Declare("node_zfs_zpool_fragmentation_percent", "ZFS pool fragmentation", metrics.KindGauge, pool)
	s.Declare("node_zfs_zpool_deduplication_ratio", "ZFS pool deduplication ratio", metrics.KindGauge, pool)

	s.Declare("node_zfs_arc_size_bytes", "ZFS ARC size", metrics.KindGauge, nil)
	s.Declare("node_zfs_arc_c_bytes", "ZFS ARC target size", metrics.KindGauge, nil)
	s.Declare("node_zfs_arc_c_min_bytes", "ZFS ARC minimum size", metrics.KindGauge, nil)
	s.Declare("node_zfs_arc_c_max_bytes", "ZFS ARC maximum size", metrics.KindGauge, nil)
	s.Declare("node_zfs_arc_hits_total", "ZFS ARC hits", metrics.KindCounter, nil)
	s.Declare("node_zfs_arc_misses_total", "ZFS ARC misses", metrics.KindCounter, nil)
	s.Declare("node_zfs_arc_hit_ratio", "ZFS ARC hit ratio", metrics.KindGauge, nil)
	s.Declare("node_zfs_l2arc_hits_total", "ZFS L2ARC hits", metrics.KindCounter, nil)
	s.Declare("node_zfs_l2arc_misses_total", "ZFS L2ARC misses", metrics.KindCounter, nil)
	s.Declare("node_zfs_l2arc_size_bytes", "ZFS L2ARC size", metrics.KindGauge, nil)

	return &ZFS{
		sink:         s,
		log:          env.logger("zfs"),
		arcstatsPath: "/proc/spl/kstat/zfs/arcstats",
	}
}

func (c *ZFS) Name() string { return "zfs" }

func (c *ZFS) Requires() []probe.Capability {
	return []probe.Capability{probe.CapZFS}
}

func (c *ZFS) Collect(ctx context.Context) error {
	out, err := cmdutil.Run(ctx, defaults.ToolTimeout, "zpool", "list", "-Hp",
		"-o", "name,size,alloc,free,frag,dedup,health")
	if err != nil {
		return fmt.Errorf("zpool list: %w", err)
	}

	pools := parser.ParseZpoolList(out)
	for _, p := range pools {
		c.sink.Set("node_zfs_zpool_health", float64(p.HealthCode), p.Name)
		c.sink.Set("node_zfs_zpool_size_bytes", float64(p.SizeBytes), p.Name)
		c.sink.Set("node_zfs_zpool_allocated_bytes", float64(p.AllocatedBytes), p.Name)
		c.sink.Set("node_zfs_zpool_free_bytes", float64(p.FreeBytes), p.Name)
		c.sink.Set("node_zfs_zpool_fragmentation_percent", p.FragmentPercent, p.Name)
		c.sink.Set("node_zfs_zpool_deduplication_ratio", p.DedupRatio, p.Name)
	}

	c.collectARC()

	c.log.Debug("zfs collected", "pools", len(pools))
	return nil
}

// collectARC reads kernel ARC statistics. The kstat file is absent when
// the module is loaded without pools; that is not an error.
func (c *ZFS) collectARC() {
	data, err := os.ReadFile(c.arcstatsPath)
	if err != nil {
		return
	}
	stats := parser.ParseARCStats(string(data))

	gauges := map[string]string{
		"size":    "node_zfs_arc_size_bytes",
		"c":       "node_zfs_arc_c_bytes",
		"c_min":   "node_zfs_arc_c_min_bytes",
		"c_max":   "node_zfs_arc_c_max_bytes",
		"l2_size": "node_zfs_l2arc_size_bytes",
	}
	for key, name := range gauges {
		if v, ok := stats[key]; ok {
			c.sink.Set(name, float64(v))
		}
	}

	counters := map[string]string{
		"hits":      "node_zfs_arc_hits_total",
		"misses":    "node_zfs_arc_misses_total",
		"l2_hits":   "node_zfs_l2arc_hits_total",
		"l2_misses": "node_zfs_l2arc_misses_total",
	}
	for key, name := range counters {
		if v, ok := stats[key]; ok {
			c.sink.IncrementTo(name, float64(v))
		}
	}

	hits, misses := stats["hits"], stats["misses"]
	if hits+misses > 0 {
		c.sink.Set("node_zfs_arc_hit_ratio", float64(hits)/float64(hits+misses))
	}
}
