package parser

import (
	"strconv"
	"strings"
)

// Pool health ordinals exported as node_zfs_zpool_health.
const (
	PoolHealthy  = 0
	PoolDegraded = 1
	PoolFaulted  = 2
)

// Pool is one storage pool from `zpool list -Hp`.
type Pool struct {
	Name            string
	SizeBytes       int64
	AllocatedBytes  int64
	FreeBytes       int64
	FragmentPercent float64
	DedupRatio      float64
	Health          string
	HealthCode      int
}

// ParseZpoolList parses the tab-delimited machine-readable output of
// `zpool list -Hp -o name,size,alloc,free,frag,dedup,health`. With -p
// the numeric columns are exact byte counts. Fragmentation is reported
// as "-" on pools where it does not apply and defaults to 0. Rows with
// missing columns are skipped.
func ParseZpoolList(text string) []Pool {
	pools := make([]Pool, 0, 2)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 7 {
			continue
		}

		p := Pool{
			Name:            cols[0],
			SizeBytes:       parseInt64(cols[1]),
			AllocatedBytes:  parseInt64(cols[2]),
			FreeBytes:       parseInt64(cols[3]),
			FragmentPercent: parseFragmentation(cols[4]),
			DedupRatio:      parseDedupRatio(cols[5]),
			Health:          cols[6],
			HealthCode:      healthOrdinal(cols[6]),
		}
		pools = append(pools, p)
	}

	return pools
}

// healthOrdinal maps a pool health string to its fixed ordinal.
// Unrecognized states map to healthy rather than inventing a code.
func healthOrdinal(health string) int {
	switch strings.ToUpper(strings.TrimSpace(health)) {
	case "DEGRADED":
		return PoolDegraded
	case "FAULTED":
		return PoolFaulted
	default:
		return PoolHealthy
	}
}

// parseFragmentation handles the "-" not-applicable sentinel and an
// optional trailing percent sign.
func parseFragmentation(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "-" || s == "" {
		return 0
	}
	return ParsePercent(s)
}

// parseDedupRatio strips the trailing "x" from ratios like "1.00x".
func parseDedupRatio(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "x")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseARCStats parses /proc/spl/kstat/zfs/arcstats: two header lines
// followed by "name type data" rows. Only numeric values are kept.
func ParseARCStats(text string) map[string]int64 {
	stats := make(map[string]int64)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i < 2 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		v, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			continue
		}
		stats[fields[0]] = v
	}

	return stats
}
