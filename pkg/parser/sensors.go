package parser

import (
	"encoding/json"
	"strings"
)

// SensorKind classifies a hardware monitor reading.
type SensorKind int

const (
	SensorTemp SensorKind = iota
	SensorFan
	SensorVoltage
	SensorPower
	SensorCurrent
)

// absoluteZeroC is the documented "unset" sentinel floor: ceiling and
// critical values below it are vendor placeholders, not readings.
const absoluteZeroC = -273.0

// SensorReading is one feature of one chip from a sensors dump.
type SensorReading struct {
	Chip   string
	Sensor string // sanitized feature key
	Label  string // human label when present, else the sanitized key
	Kind   SensorKind
	Value  float64

	// Temperature ceilings; HasMax/HasCrit are false when the dump
	// omitted them or reported the below-absolute-zero sentinel.
	Max     float64
	HasMax  bool
	Crit    float64
	HasCrit bool

	Alarm bool
}

// ParseSensorsJSON parses `sensors -j` output: a map of chip name to
// feature maps, where each feature holds subfeature keys like
// "temp1_input", "temp1_max", "fan2_input". Chips or features that do
// not decode are skipped. Readings are grouped by chip, then by
// sensor-within-chip.
func ParseSensorsJSON(data []byte) []SensorReading {
	var chips map[string]json.RawMessage
	if err := json.Unmarshal(data, &chips); err != nil {
		return nil
	}

	readings := make([]SensorReading, 0, 16)

	for chipName, rawChip := range chips {
		var features map[string]json.RawMessage
		if err := json.Unmarshal(rawChip, &features); err != nil {
			continue
		}

		chip := sanitizeName(chipName)
		for featureName, rawFeature := range features {
			// The Adapter entry is a plain string, not a feature map.
			var sub map[string]float64
			if err := json.Unmarshal(rawFeature, &sub); err != nil {
				continue
			}
			if r, ok := buildReading(chip, featureName, sub); ok {
				readings = append(readings, r)
			}
		}
	}

	return readings
}

// buildReading folds one feature's subfeature map into a typed reading.
func buildReading(chip, featureName string, sub map[string]float64) (SensorReading, bool) {
	r := SensorReading{
		Chip:   chip,
		Sensor: sanitizeName(featureName),
		Label:  featureName,
	}

	found := false
	for key, value := range sub {
		idx := strings.LastIndex(key, "_")
		if idx < 0 {
			continue
		}
		prefix, field := key[:idx], key[idx+1:]

		switch {
		case field == "input":
			r.Value = value
			r.Kind = kindOf(prefix)
			found = true
		case field == "max" && kindOf(prefix) == SensorTemp:
			if value > absoluteZeroC {
				r.Max, r.HasMax = value, true
			}
		case field == "crit" && kindOf(prefix) == SensorTemp:
			if value > absoluteZeroC {
				r.Crit, r.HasCrit = value, true
			}
		case field == "alarm":
			r.Alarm = value != 0
		}
	}

	return r, found
}

func kindOf(subfeature string) SensorKind {
	switch {
	case strings.HasPrefix(subfeature, "temp"):
		return SensorTemp
	case strings.HasPrefix(subfeature, "fan"):
		return SensorFan
	case strings.HasPrefix(subfeature, "in"):
		return SensorVoltage
	case strings.HasPrefix(subfeature, "power"):
		return SensorPower
	case strings.HasPrefix(subfeature, "curr"):
		return SensorCurrent
	default:
		return SensorTemp
	}
}

// sanitizeName normalizes chip and sensor names into stable label
// values.
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer("-", "_", " ", "_", ".", "_")
	return replacer.Replace(s)
}
