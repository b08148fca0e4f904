package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cache"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cmdutil"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/parser"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/ratelimit"
)

// smartAttributeGauges maps ATA attribute names to their metric
// families. Vendors disagree on wearout attribute naming, so both
// common spellings feed the same family.
var smartAttributeGauges = map[string]string{
	"Reallocated_Sector_Ct":   "node_disk_smart_reallocated_sectors",
	"Current_Pending_Sector":  "node_disk_smart_pending_sectors",
	"Offline_Uncorrectable":   "node_disk_smart_uncorrectable_sectors",
	"Raw_Read_Error_Rate":     "node_disk_smart_raw_read_error_rate",
	"Seek_Error_Rate":         "node_disk_smart_seek_error_rate",
	"Spin_Retry_Count":        "node_disk_smart_spin_retry_count",
	"Media_Wearout_Indicator": "node_disk_smart_ssd_wearout_percent",
	"Wear_Leveling_Count":     "node_disk_smart_ssd_wearout_percent",
}

// Smart collects per-disk SMART health. Device discovery and per-device
// reports are both expensive and both wake hardware, so discovery is
// memoized for ScanCacheTTL, reports for SmartCacheTTL, and every cache
// miss is gated by the shared rate limiter.
type Smart struct {
	sink    *metrics.Sink
	cache   *cache.Cache
	limiter *ratelimit.SlidingWindow
	log     *slog.Logger
}

func NewSmart(env Env) *Smart {
	s := env.Sink
	dm := []string{"device", "model"}
	s.Declare("node_disk_smart_healthy", "SMART health status", metrics.KindGauge, []string{"device", "model", "serial"})
	s.Declare("node_disk_smart_temperature_celsius", "Disk temperature", metrics.KindGauge, dm)
	s.Declare("node_disk_smart_power_on_hours", "Power on hours", metrics.KindCounter, dm)
	s.Declare("node_disk_smart_power_cycles", "Power cycles", metrics.KindCounter, dm)
	s.Declare("node_disk_smart_reallocated_sectors", "Reallocated sectors", metrics.KindGauge, dm)
	s.Declare("node_disk_smart_pending_sectors", "Pending sectors", metrics.KindGauge, dm)
	s.Declare("node_disk_smart_uncorrectable_sectors", "Uncorrectable sectors", metrics.KindGauge, dm)
	s.Declare("node_disk_smart_raw_read_error_rate", "Raw read error rate", metrics.KindGauge, dm)
	s.Declare("node_disk_smart_seek_error_rate", "Seek error rate", metrics.KindGauge, dm)
	s.Declare("node_disk_smart_spin_retry_count", "Spin retry count", metrics.KindGauge, dm)
	s.Declare("node_disk_smart_ssd_wearout_percent", "SSD wearout indicator", metrics.KindGauge, dm)

	return &Smart{
		sink:    s,
		cache:   env.Cache,
		limiter: env.Limiter,
		log:     env.logger("smart"),
	}
}

func (c *Smart) Name() string { return "smart" }

func (c *Smart) Requires() []probe.Capability {
	return []probe.Capability{probe.CapSmart}
}

func (c *Smart) Collect(ctx context.Context) error {
	devices, err := c.scan(ctx)
	if err != nil {
		return fmt.Errorf("smart scan: %w", err)
	}

	reported := 0
	for _, dev := range devices {
		report, ok := c.report(ctx, dev)
		if !ok {
			continue
		}
		c.publish(report)
		reported++
	}

	c.log.Debug("smart collected", "devices", len(devices), "reported", reported)
	return nil
}

func (c *Smart) scan(ctx context.Context) ([]parser.SmartDevice, error) {
	value, err := c.cache.Get("smart:scan", defaults.ScanCacheTTL, func() (any, error) {
		if !c.limiter.Allow() {
			return nil, errStatsRateLimited
		}
		out, err := cmdutil.Run(ctx, defaults.SlowToolTimeout, "smartctl", "--scan", "-j")
		if err != nil && !smartExitAcceptable(err) {
			return nil, err
		}
		return parser.ParseSmartScan([]byte(out)), nil
	})
	if err != nil {
		return nil, err
	}
	devices, _ := value.([]parser.SmartDevice)
	return devices, nil
}

func (c *Smart) report(ctx context.Context, dev parser.SmartDevice) (parser.SmartReport, bool) {
	value, err := c.cache.Get("smart:report:"+dev.Name, defaults.SmartCacheTTL, func() (any, error) {
		if !c.limiter.Allow() {
			return nil, errStatsRateLimited
		}
		args := []string{"-a", "-j"}
		if dev.Type != "" {
			args = append(args, "-d", dev.Type)
		}
		args = append(args, dev.Name)

		out, err := cmdutil.Run(ctx, defaults.SlowToolTimeout, "smartctl", args...)
		if err != nil && !smartExitAcceptable(err) {
			return nil, err
		}
		report, ok := parser.ParseSmartReport(dev.Name, []byte(out))
		if !ok {
			return nil, fmt.Errorf("unparseable report for %s", dev.Name)
		}
		return report, nil
	})
	if err != nil {
		if !errors.Is(err, errStatsRateLimited) {
			c.log.Debug("smart report unavailable", "device", dev.Name, "error", err)
		}
		return parser.SmartReport{}, false
	}

	report, ok := value.(parser.SmartReport)
	return report, ok
}

func (c *Smart) publish(r parser.SmartReport) {
	if r.HasHealth {
		healthy := 0.0
		if r.Healthy {
			healthy = 1.0
		}
		c.sink.Set("node_disk_smart_healthy", healthy, r.Device, r.ModelName, r.SerialNumber)
	}
	if r.HasTemperature {
		c.sink.Set("node_disk_smart_temperature_celsius", r.TemperatureC, r.Device, r.ModelName)
	}
	if r.PowerOnHours > 0 {
		c.sink.IncrementTo("node_disk_smart_power_on_hours", float64(r.PowerOnHours), r.Device, r.ModelName)
	}
	if r.PowerCycles > 0 {
		c.sink.IncrementTo("node_disk_smart_power_cycles", float64(r.PowerCycles), r.Device, r.ModelName)
	}

	for attr, name := range smartAttributeGauges {
		if v, ok := r.Attributes[attr]; ok {
			c.sink.Set(name, float64(v), r.Device, r.ModelName)
		}
	}
}

// smartExitAcceptable reports whether a smartctl failure still produced
// a usable payload. Bits other than the "SMART not enabled" bit signal
// real failures.
func smartExitAcceptable(err error) bool {
	code := cmdutil.ExitCode(err)
	return code >= 0 && code&^parser.SmartctlExitNotEnabled == 0
}
