package parser

import (
	"strconv"
	"strings"
)

// IPMISensor is one row of `ipmitool sensor` output.
type IPMISensor struct {
	Name   string
	Value  float64
	Unit   string
	Status string
}

// ipmiUnavailable reports whether a value field carries the
// not-available sentinel. ipmitool emits "na" in table output; older
// firmware spells out "not available".
func ipmiUnavailable(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	return v == "na" || v == "not available" || v == "no reading" || v == ""
}

// ParseIPMISensors parses pipe-delimited `ipmitool sensor` rows:
// name | value | unit | status | thresholds... Rows whose value field
// is a not-available sentinel are skipped rather than parsed as zero;
// rows with non-numeric values or too few columns are skipped.
func ParseIPMISensors(text string) []IPMISensor {
	sensors := make([]IPMISensor, 0, 16)

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "|")
		if len(cols) < 4 {
			continue
		}

		valueStr := cols[1]
		if ipmiUnavailable(valueStr) {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
		if err != nil {
			continue
		}

		sensors = append(sensors, IPMISensor{
			Name:   strings.TrimSpace(cols[0]),
			Value:  value,
			Unit:   strings.TrimSpace(cols[2]),
			Status: strings.TrimSpace(cols[3]),
		})
	}

	return sensors
}
