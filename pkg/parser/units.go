// Package parser converts loosely-structured external tool output into
// typed records. Every parser is pure: text or JSON in, a slice of
// records out. A malformed row never aborts the whole parse; it is
// skipped and parsing continues. Absent or empty input yields an empty
// slice, never an error, because tool availability can drift between
// startup detection and a given cycle.
package parser

import (
	"strconv"
	"strings"
)

// memoryUnits maps size suffixes to their byte multipliers. Binary
// suffixes (KiB/MiB/GiB/TiB) use base 1024, decimal suffixes
// (KB/MB/GB/TB) use base 1000. Container engines emit both, and
// confusing the bases skews memory metrics by up to 10%, so the order
// below is longest-suffix-first to keep "GiB" from matching "B".
var memoryUnits = []struct {
	suffix     string
	multiplier float64
}{
	{"KiB", 1 << 10},
	{"MiB", 1 << 20},
	{"GiB", 1 << 30},
	{"TiB", 1 << 40},
	{"KB", 1e3},
	{"MB", 1e6},
	{"GB", 1e9},
	{"TB", 1e12},
	{"B", 1},
}

// ParseMemoryString converts a human-readable size like "1.5GiB" or
// "500MB" to bytes. An unrecognized unit or unparseable number yields 0,
// a defined degraded value rather than an error.
func ParseMemoryString(s string) int64 {
	s = strings.TrimSpace(s)
	for _, u := range memoryUnits {
		if !strings.HasSuffix(s, u.suffix) {
			continue
		}
		num := strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0
		}
		return int64(v * u.multiplier)
	}
	return 0
}

// ParsePercent converts a percentage string like "12.34%" to its
// numeric value. Malformed input yields 0.
func ParsePercent(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
