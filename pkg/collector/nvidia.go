package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cmdutil"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/parser"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
)

const nvidiaVendor = "nvidia"

// NvidiaGPU collects per-GPU utilization, memory, thermals and power
// from nvidia-smi's machine-readable CSV mode.
type NvidiaGPU struct {
	sink *metrics.Sink
	log  *slog.Logger
}

func NewNvidiaGPU(env Env) *NvidiaGPU {
	s := env.Sink
	gv := []string{"gpu", "name", "vendor"}
	s.Declare("node_gpu_count", "Number of GPUs", metrics.KindGauge, []string{"vendor"})
	s.Declare("node_gpu_temp_celsius", "GPU temperature", metrics.KindGauge, gv)
	s.Declare("node_gpu_utilization_percent", "GPU utilization", metrics.KindGauge, []string{"gpu", "name", "vendor", "type"})
	s.Declare("node_gpu_memory_total_bytes", "GPU memory total", metrics.KindGauge, gv)
	s.Declare("node_gpu_memory_used_bytes", "GPU memory used", metrics.KindGauge, gv)
	s.Declare("node_gpu_memory_free_bytes", "GPU memory free", metrics.KindGauge, gv)
	s.Declare("node_gpu_power_draw_watts", "GPU power draw", metrics.KindGauge, gv)
	s.Declare("node_gpu_power_limit_watts", "GPU power limit", metrics.KindGauge, gv)
	s.Declare("node_gpu_fan_speed_percent", "GPU fan speed", metrics.KindGauge, gv)

	return &NvidiaGPU{sink: s, log: env.logger("nvidia_gpu")}
}

func (c *NvidiaGPU) Name() string { return "nvidia_gpu" }

func (c *NvidiaGPU) Requires() []probe.Capability {
	return []probe.Capability{probe.CapNvidiaGPU}
}

func (c *NvidiaGPU) Collect(ctx context.Context) error {
	out, err := cmdutil.Run(ctx, defaults.ToolTimeout, "nvidia-smi",
		"--query-gpu="+parser.NvidiaGPUQuery, "--format=csv,noheader,nounits")
	if err != nil {
		return fmt.Errorf("nvidia-smi: %w", err)
	}

	gpus := parser.ParseNvidiaSMI(out)
	c.sink.Set("node_gpu_count", float64(len(gpus)), nvidiaVendor)

	for _, gpu := range gpus {
		idx := strconv.Itoa(gpu.Index)
		lv := []string{idx, gpu.Name, nvidiaVendor}

		c.sink.Set("node_gpu_temp_celsius", gpu.TemperatureC, lv...)
		c.sink.Set("node_gpu_utilization_percent", gpu.UtilGPUPercent, idx, gpu.Name, nvidiaVendor, "gpu")
		c.sink.Set("node_gpu_utilization_percent", gpu.UtilMemPercent, idx, gpu.Name, nvidiaVendor, "memory")
		c.sink.Set("node_gpu_memory_total_bytes", float64(gpu.MemTotalBytes), lv...)
		c.sink.Set("node_gpu_memory_used_bytes", float64(gpu.MemUsedBytes), lv...)
		c.sink.Set("node_gpu_memory_free_bytes", float64(gpu.MemFreeBytes), lv...)

		if gpu.HasPowerDraw {
			c.sink.Set("node_gpu_power_draw_watts", gpu.PowerDrawW, lv...)
		}
		if gpu.HasPowerLimit {
			c.sink.Set("node_gpu_power_limit_watts", gpu.PowerLimitW, lv...)
		}
		if gpu.HasFanSpeed {
			c.sink.Set("node_gpu_fan_speed_percent", gpu.FanSpeedPercent, lv...)
		}
	}

	c.log.Debug("nvidia gpus collected", "count", len(gpus))
	return nil
}
