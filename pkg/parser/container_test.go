package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContainerList(t *testing.T) {
	text := "abcdef1234567890\tweb\tUp 2 hours\trunning\n" +
		"1234\tdb\tExited (0) 3 days ago\texited\n" +
		"short line without tabs\n" +
		"\n"

	containers := ParseContainerList(text)
	require.Len(t, containers, 2)

	assert.Equal(t, "abcdef123456", containers[0].ID, "IDs are truncated to 12 characters")
	assert.Equal(t, "web", containers[0].Name)
	assert.Equal(t, "running", containers[0].State)

	assert.Equal(t, "1234", containers[1].ID)
	assert.Equal(t, "exited", containers[1].State)
}

func TestParsePodmanList(t *testing.T) {
	data := []byte(`[
		{"Id":"aabbccddeeff00112233","Names":["cache"],"State":"running"},
		{"Id":"ffee","Names":[],"State":"exited"},
		{"Names":["orphan"],"State":"created"}
	]`)

	containers := ParsePodmanList(data)
	require.Len(t, containers, 2)

	assert.Equal(t, "aabbccddeeff", containers[0].ID)
	assert.Equal(t, "cache", containers[0].Name)
	assert.Equal(t, "running", containers[0].State)

	assert.Equal(t, "unknown", containers[1].Name)
}

func TestParsePodmanList_InvalidJSON(t *testing.T) {
	assert.Nil(t, ParsePodmanList([]byte("not json")))
}

func TestParseContainerStats(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantCPU   float64
		wantUsed  int64
		wantLimit int64
		wantMem   bool
	}{
		{
			name:      "docker object with binary units",
			data:      `{"CPUPerc":"12.5%","MemUsage":"1.5GiB / 4GiB"}`,
			wantCPU:   12.5,
			wantUsed:  1610612736,
			wantLimit: 4294967296,
			wantMem:   true,
		},
		{
			name:      "decimal units use base 1000",
			data:      `{"CPUPerc":"0.3%","MemUsage":"500MB / 2GB"}`,
			wantCPU:   0.3,
			wantUsed:  500000000,
			wantLimit: 2000000000,
			wantMem:   true,
		},
		{
			name:    "podman array with snake_case keys",
			data:    `[{"cpu_percent":"3.7%","mem_usage":"256MiB / 1GiB"}]`,
			wantCPU: 3.7, wantUsed: 268435456, wantLimit: 1073741824, wantMem: true,
		},
		{
			name:    "missing memory pair",
			data:    `{"CPUPerc":"1.0%"}`,
			wantCPU: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, ok := ParseContainerStats([]byte(tt.data))
			require.True(t, ok)
			assert.InDelta(t, tt.wantCPU, stats.CPUPercent, 1e-9)
			assert.Equal(t, tt.wantMem, stats.HasMemoryUsage)
			if tt.wantMem {
				assert.Equal(t, tt.wantUsed, stats.MemUsedBytes)
				assert.Equal(t, tt.wantLimit, stats.MemLimitBytes)
			}
		})
	}
}

func TestParseContainerStats_Malformed(t *testing.T) {
	_, ok := ParseContainerStats([]byte("not json"))
	assert.False(t, ok)

	_, ok = ParseContainerStats([]byte("[]"))
	assert.False(t, ok)
}
