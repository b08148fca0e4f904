package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zpoolSample = "tank\t994662584320\t537944653824\t456717930496\t23\t1.00x\tONLINE\n" +
	"backup\t1994662584320\t537944653824\t1456717930496\t-\t1.25x\tDEGRADED\n" +
	"scratch\t994662584320\t537944653824\t456717930496\t5\t1.00x\tFAULTED\n"

func TestParseZpoolList(t *testing.T) {
	pools := ParseZpoolList(zpoolSample)
	require.Len(t, pools, 3)

	tank := pools[0]
	assert.Equal(t, "tank", tank.Name)
	assert.Equal(t, int64(994662584320), tank.SizeBytes)
	assert.Equal(t, int64(537944653824), tank.AllocatedBytes)
	assert.Equal(t, int64(456717930496), tank.FreeBytes)
	assert.InDelta(t, 23, tank.FragmentPercent, 1e-9)
	assert.InDelta(t, 1.0, tank.DedupRatio, 1e-9)
	assert.Equal(t, PoolHealthy, tank.HealthCode)

	backup := pools[1]
	assert.Equal(t, PoolDegraded, backup.HealthCode)
	assert.InDelta(t, 0, backup.FragmentPercent, 1e-9, `"-" means fragmentation not applicable`)
	assert.InDelta(t, 1.25, backup.DedupRatio, 1e-9)

	assert.Equal(t, PoolFaulted, pools[2].HealthCode)
}

func TestHealthOrdinal(t *testing.T) {
	tests := []struct {
		health string
		want   int
	}{
		{"ONLINE", PoolHealthy},
		{"DEGRADED", PoolDegraded},
		{"FAULTED", PoolFaulted},
		{"degraded", PoolDegraded},
		{"SUSPENDED", PoolHealthy},
		{"", PoolHealthy},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, healthOrdinal(tt.health), "health %q", tt.health)
	}
}

func TestParseZpoolList_MalformedRowsSkipped(t *testing.T) {
	text := "tank\t100\n" + zpoolSample
	pools := ParseZpoolList(text)
	assert.Len(t, pools, 3)
}

func TestParseARCStats(t *testing.T) {
	text := `13 1 0x01 123 33456 7577305316 14468393625475
name                            type data
hits                            4    8772612
misses                          4    604635
size                            4    4294967296
c                               4    8589934592
not-a-number                    4    abc
`
	stats := ParseARCStats(text)

	assert.Equal(t, int64(8772612), stats["hits"])
	assert.Equal(t, int64(604635), stats["misses"])
	assert.Equal(t, int64(4294967296), stats["size"])
	assert.Equal(t, int64(8589934592), stats["c"])

	_, ok := stats["not-a-number"]
	assert.False(t, ok)
}

func TestParseZpoolList_Idempotent(t *testing.T) {
	assert.Equal(t, ParseZpoolList(zpoolSample), ParseZpoolList(zpoolSample))
}
