package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cmdutil"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/parser"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/ratelimit"
)

// IPMI collects BMC sensor readings via ipmitool. The BMC is slow and
// easily saturated, so every invocation is gated by the shared rate
// limiter; a denied cycle keeps the previous readings.
type IPMI struct {
	sink    *metrics.Sink
	limiter *ratelimit.SlidingWindow
	log     *slog.Logger
}

func NewIPMI(env Env) *IPMI {
	s := env.Sink
	s.Declare("node_ipmi_sensor_value", "IPMI sensor value", metrics.KindGauge, []string{"name", "type", "unit"})
	s.Declare("node_ipmi_sensor_state", "IPMI sensor state", metrics.KindGauge, []string{"name", "type", "state"})
	s.Declare("node_ipmi_fan_speed_rpm", "IPMI fan speed", metrics.KindGauge, []string{"name"})
	s.Declare("node_ipmi_temperature_celsius", "IPMI temperature", metrics.KindGauge, []string{"name"})
	s.Declare("node_ipmi_voltage_volts", "IPMI voltage", metrics.KindGauge, []string{"name"})
	s.Declare("node_ipmi_power_watts", "IPMI power consumption", metrics.KindGauge, []string{"name"})

	return &IPMI{sink: s, limiter: env.Limiter, log: env.logger("ipmi")}
}

func (c *IPMI) Name() string { return "ipmi" }

func (c *IPMI) Requires() []probe.Capability {
	return []probe.Capability{probe.CapIPMI}
}

func (c *IPMI) Collect(ctx context.Context) error {
	if !c.limiter.Allow() {
		c.log.Debug("ipmi sampling rate limited, keeping previous readings")
		return nil
	}

	out, err := cmdutil.Run(ctx, defaults.SlowToolTimeout, "ipmitool", "sensor")
	if err != nil {
		return fmt.Errorf("ipmitool sensor: %w", err)
	}

	sensors := parser.ParseIPMISensors(out)
	for _, sensor := range sensors {
		kind := ipmiKind(sensor.Unit)
		c.sink.Set("node_ipmi_sensor_value", sensor.Value, sensor.Name, kind, sensor.Unit)
		c.sink.Set("node_ipmi_sensor_state", stateValue(sensor.Status), sensor.Name, kind, sensor.Status)

		switch kind {
		case "temperature":
			c.sink.Set("node_ipmi_temperature_celsius", sensor.Value, sensor.Name)
		case "fan":
			c.sink.Set("node_ipmi_fan_speed_rpm", sensor.Value, sensor.Name)
		case "voltage":
			c.sink.Set("node_ipmi_voltage_volts", sensor.Value, sensor.Name)
		case "power":
			c.sink.Set("node_ipmi_power_watts", sensor.Value, sensor.Name)
		}
	}

	c.log.Debug("ipmi collected", "sensors", len(sensors))
	return nil
}

func ipmiKind(unit string) string {
	u := strings.ToLower(unit)
	switch {
	case strings.Contains(u, "degrees"):
		return "temperature"
	case strings.Contains(u, "rpm"):
		return "fan"
	case strings.Contains(u, "volt"):
		return "voltage"
	case strings.Contains(u, "watt"):
		return "power"
	case strings.Contains(u, "amp"):
		return "current"
	default:
		return "other"
	}
}

func stateValue(status string) float64 {
	if strings.EqualFold(strings.TrimSpace(status), "ok") {
		return 1
	}
	return 0
}
