package collector

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/parser"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
)

// Mdadm collects software RAID array health from /proc/mdstat.
type Mdadm struct {
	sink *metrics.Sink
	log  *slog.Logger

	// mdstatPath is swappable for tests.
	mdstatPath string
}

func NewMdadm(env Env) *Mdadm {
	s := env.Sink
	dev := []string{"device"}
	s.Declare("node_md_state", "MD array state", metrics.KindGauge, []string{"device", "state"})
	s.Declare("node_md_disks", "Total disks in array", metrics.KindGauge, dev)
	s.Declare("node_md_disks_active", "Active disks in array", metrics.KindGauge, dev)
	s.Declare("node_md_disks_failed", "Failed disks in array", metrics.KindGauge, dev)
	s.Declare("node_md_sync_action", "Current sync action", metrics.KindGauge, []string{"device", "action"})
	s.Declare("node_md_sync_completed_percent", "Sync completion percentage", metrics.KindGauge, dev)
	s.Declare("node_md_sync_speed_kb_per_sec", "Sync speed", metrics.KindGauge, dev)

	return &Mdadm{sink: s, log: env.logger("mdadm"), mdstatPath: "/proc/mdstat"}
}

func (c *Mdadm) Name() string { return "mdadm" }

func (c *Mdadm) Requires() []probe.Capability {
	return []probe.Capability{probe.CapMdadm}
}

func (c *Mdadm) Collect(ctx context.Context) error {
	data, err := os.ReadFile(c.mdstatPath)
	if err != nil {
		return fmt.Errorf("read mdstat: %w", err)
	}

	arrays := parser.ParseMDStat(string(data))
	for _, a := range arrays {
		c.sink.Set("node_md_state", 1, a.Device, a.State)
		c.sink.Set("node_md_disks", float64(a.TotalDisks), a.Device)
		c.sink.Set("node_md_disks_active", float64(a.ActiveDisks), a.Device)
		c.sink.Set("node_md_disks_failed", float64(a.FailedDisks), a.Device)

		if a.Syncing {
			c.sink.Set("node_md_sync_action", 1, a.Device, a.SyncAction)
			c.sink.Set("node_md_sync_completed_percent", a.SyncPercent, a.Device)
			c.sink.Set("node_md_sync_speed_kb_per_sec", a.SyncSpeedKBps, a.Device)
		} else {
			c.sink.Set("node_md_sync_completed_percent", 100, a.Device)
			c.sink.Set("node_md_sync_speed_kb_per_sec", 0, a.Device)
		}
	}

	c.log.Debug("mdadm collected", "arrays", len(arrays))
	return nil
}
