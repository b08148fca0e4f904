package parser

import (
	"strconv"
	"strings"
)

// NvidiaGPUQuery is the --query-gpu field list the collector requests;
// ParseNvidiaSMI depends on this column order.
const NvidiaGPUQuery = "index,name,temperature.gpu,utilization.gpu,utilization.memory," +
	"memory.total,memory.used,memory.free,power.draw,power.limit,fan.speed"

// NvidiaGPU is one GPU row from
// `nvidia-smi --query-gpu=... --format=csv,noheader,nounits`.
// Fields nvidia-smi reports as unsupported arrive as -1 with the
// corresponding Has flag false.
type NvidiaGPU struct {
	Index int
	Name  string

	TemperatureC   float64
	UtilGPUPercent float64
	UtilMemPercent float64

	// Memory arrives in MiB under nounits; converted to bytes here.
	MemTotalBytes int64
	MemUsedBytes  int64
	MemFreeBytes  int64

	PowerDrawW    float64
	HasPowerDraw  bool
	PowerLimitW   float64
	HasPowerLimit bool

	FanSpeedPercent float64
	HasFanSpeed     bool
}

// ParseNvidiaSMI parses CSV rows in NvidiaGPUQuery column order. Rows
// with too few columns are skipped; "[N/A]" and "[Not Supported]"
// markers disable the affected field without dropping the row.
func ParseNvidiaSMI(text string) []NvidiaGPU {
	gpus := make([]NvidiaGPU, 0, 2)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cols := strings.Split(line, ",")
		if len(cols) < 11 {
			continue
		}
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}

		index, err := strconv.Atoi(cols[0])
		if err != nil {
			continue
		}

		gpu := NvidiaGPU{
			Index:          index,
			Name:           cols[1],
			TemperatureC:   smiFloat(cols[2]),
			UtilGPUPercent: smiFloat(cols[3]),
			UtilMemPercent: smiFloat(cols[4]),
			MemTotalBytes:  int64(smiFloat(cols[5])) << 20,
			MemUsedBytes:   int64(smiFloat(cols[6])) << 20,
			MemFreeBytes:   int64(smiFloat(cols[7])) << 20,
		}
		gpu.PowerDrawW, gpu.HasPowerDraw = smiOptFloat(cols[8])
		gpu.PowerLimitW, gpu.HasPowerLimit = smiOptFloat(cols[9])
		gpu.FanSpeedPercent, gpu.HasFanSpeed = smiOptFloat(cols[10])

		gpus = append(gpus, gpu)
	}

	return gpus
}

func smiFloat(s string) float64 {
	v, ok := smiOptFloat(s)
	if !ok {
		return 0
	}
	return v
}

func smiOptFloat(s string) (float64, bool) {
	if strings.HasPrefix(s, "[") {
		// [N/A] or [Not Supported]
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
