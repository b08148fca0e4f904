package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cmdutil"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/parser"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
)

// upsVarGauges maps NUT variable names to their metric families.
var upsVarGauges = map[string]string{
	"battery.charge":  "node_ups_battery_charge_percent",
	"battery.runtime": "node_ups_battery_runtime_seconds",
	"battery.voltage": "node_ups_battery_voltage",
	"input.voltage":   "node_ups_input_voltage",
	"output.voltage":  "node_ups_output_voltage",
	"ups.load":        "node_ups_load_percent",
	"ups.temperature": "node_ups_temperature_celsius",
}

// UPS collects battery and power state from Network UPS Tools via upsc.
type UPS struct {
	sink *metrics.Sink
	log  *slog.Logger
}

func NewUPS(env Env) *UPS {
	s := env.Sink
	ups := []string{"ups"}
	for _, name := range upsVarGauges {
		s.Declare(name, "UPS reading from NUT", metrics.KindGauge, ups)
	}
	s.Declare("node_ups_on_battery", "UPS is on battery power", metrics.KindGauge, ups)

	return &UPS{sink: s, log: env.logger("nut_ups")}
}

func (c *UPS) Name() string { return "nut_ups" }

func (c *UPS) Requires() []probe.Capability {
	return []probe.Capability{probe.CapNutUPS}
}

func (c *UPS) Collect(ctx context.Context) error {
	out, err := cmdutil.Run(ctx, defaults.ToolTimeout, "upsc", "-l")
	if err != nil {
		return fmt.Errorf("upsc list: %w", err)
	}

	names := parser.ParseUPSList(out)
	for _, name := range names {
		if err := c.collectOne(ctx, name); err != nil {
			c.log.Warn("ups unavailable", "ups", name, "error", err)
		}
	}

	c.log.Debug("ups collected", "count", len(names))
	return nil
}

func (c *UPS) collectOne(ctx context.Context, name string) error {
	out, err := cmdutil.Run(ctx, defaults.ToolTimeout, "upsc", name)
	if err != nil {
		return err
	}

	vars := parser.ParseUPSVars(out)
	for key, metric := range upsVarGauges {
		raw, ok := vars[key]
		if !ok {
			continue
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			c.sink.Set(metric, v, name)
		}
	}

	// ups.status is a flag list; OB means running on battery.
	onBattery := 0.0
	for _, flag := range strings.Fields(vars["ups.status"]) {
		if flag == "OB" {
			onBattery = 1.0
			break
		}
	}
	c.sink.Set("node_ups_on_battery", onBattery, name)
	return nil
}
