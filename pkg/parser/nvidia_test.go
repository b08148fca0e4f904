package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nvidiaSample = `0, NVIDIA GeForce RTX 3090, 54, 37, 12, 24576, 4321, 20255, 187.34, 350.00, 41
1, NVIDIA A100-SXM4-40GB, 41, 99, 87, 40960, 39000, 1960, [N/A], 400.00, [Not Supported]
`

func TestParseNvidiaSMI(t *testing.T) {
	gpus := ParseNvidiaSMI(nvidiaSample)
	require.Len(t, gpus, 2)

	rtx := gpus[0]
	assert.Equal(t, 0, rtx.Index)
	assert.Equal(t, "NVIDIA GeForce RTX 3090", rtx.Name)
	assert.InDelta(t, 54, rtx.TemperatureC, 1e-9)
	assert.InDelta(t, 37, rtx.UtilGPUPercent, 1e-9)
	assert.Equal(t, int64(24576)<<20, rtx.MemTotalBytes)
	assert.Equal(t, int64(4321)<<20, rtx.MemUsedBytes)
	assert.True(t, rtx.HasPowerDraw)
	assert.InDelta(t, 187.34, rtx.PowerDrawW, 1e-9)
	assert.True(t, rtx.HasFanSpeed)
	assert.InDelta(t, 41, rtx.FanSpeedPercent, 1e-9)

	a100 := gpus[1]
	assert.False(t, a100.HasPowerDraw, "[N/A] disables the field without dropping the row")
	assert.True(t, a100.HasPowerLimit)
	assert.False(t, a100.HasFanSpeed)
}

func TestParseNvidiaSMI_MalformedRowsSkipped(t *testing.T) {
	text := "garbage\n0, GPU, 1, 2\n" + nvidiaSample
	gpus := ParseNvidiaSMI(text)
	assert.Len(t, gpus, 2)
}

func TestParseNvidiaSMI_Empty(t *testing.T) {
	assert.Empty(t, ParseNvidiaSMI(""))
}
