package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cmdutil"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/parser"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
)

// Sensors collects hardware monitor readings from the lm-sensors JSON
// dump: temperatures with their ceilings, fans, voltages, power and
// current rails.
type Sensors struct {
	sink *metrics.Sink
	log  *slog.Logger
}

func NewSensors(env Env) *Sensors {
	s := env.Sink

	tempLabels := []string{"chip", "sensor", "label"}
	s.Declare("node_hwmon_temp_celsius", "Temperature in Celsius", metrics.KindGauge, tempLabels)
	s.Declare("node_hwmon_temp_max_celsius", "Maximum temperature", metrics.KindGauge, tempLabels)
	s.Declare("node_hwmon_temp_crit_celsius", "Critical temperature", metrics.KindGauge, tempLabels)
	s.Declare("node_hwmon_temp_alarm", "Temperature alarm", metrics.KindGauge, tempLabels)

	chipLabels := []string{"chip", "sensor"}
	s.Declare("node_hwmon_fan_rpm", "Fan speed RPM", metrics.KindGauge, chipLabels)
	s.Declare("node_hwmon_voltage_volts", "Voltage", metrics.KindGauge, chipLabels)
	s.Declare("node_hwmon_power_watt", "Power consumption", metrics.KindGauge, chipLabels)
	s.Declare("node_hwmon_curr_amps", "Current", metrics.KindGauge, chipLabels)

	return &Sensors{sink: s, log: env.logger("sensors")}
}

func (c *Sensors) Name() string { return "sensors" }

func (c *Sensors) Requires() []probe.Capability {
	return []probe.Capability{probe.CapSensors}
}

func (c *Sensors) Collect(ctx context.Context) error {
	out, err := cmdutil.Run(ctx, defaults.ToolTimeout, "sensors", "-j")
	if err != nil {
		return fmt.Errorf("sensors: %w", err)
	}

	readings := parser.ParseSensorsJSON([]byte(out))
	for _, r := range readings {
		switch r.Kind {
		case parser.SensorTemp:
			lv := []string{r.Chip, r.Sensor, r.Label}
			c.sink.Set("node_hwmon_temp_celsius", r.Value, lv...)
			if r.HasMax {
				c.sink.Set("node_hwmon_temp_max_celsius", r.Max, lv...)
			}
			if r.HasCrit {
				c.sink.Set("node_hwmon_temp_crit_celsius", r.Crit, lv...)
			}
			alarm := 0.0
			if r.Alarm {
				alarm = 1.0
			}
			c.sink.Set("node_hwmon_temp_alarm", alarm, lv...)
		case parser.SensorFan:
			c.sink.Set("node_hwmon_fan_rpm", r.Value, r.Chip, r.Sensor)
		case parser.SensorVoltage:
			c.sink.Set("node_hwmon_voltage_volts", r.Value, r.Chip, r.Sensor)
		case parser.SensorPower:
			c.sink.Set("node_hwmon_power_watt", r.Value, r.Chip, r.Sensor)
		case parser.SensorCurrent:
			c.sink.Set("node_hwmon_curr_amps", r.Value, r.Chip, r.Sensor)
		}
	}

	c.log.Debug("sensors collected", "readings", len(readings))
	return nil
}
