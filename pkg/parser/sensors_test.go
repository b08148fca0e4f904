package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sensorsSample = `{
	"coretemp-isa-0000": {
		"Adapter": "ISA adapter",
		"Package id 0": {
			"temp1_input": 48.0,
			"temp1_max": 84.0,
			"temp1_crit": 100.0,
			"temp1_alarm": 0.0
		},
		"Core 0": {
			"temp2_input": 45.0,
			"temp2_max": 84.0,
			"temp2_crit": -273.15
		}
	},
	"nct6798-isa-0290": {
		"Adapter": "ISA adapter",
		"fan1": {
			"fan1_input": 1234.0
		},
		"in0": {
			"in0_input": 1.02
		}
	}
}`

func findReading(t *testing.T, readings []SensorReading, chip, sensor string) SensorReading {
	t.Helper()
	for _, r := range readings {
		if r.Chip == chip && r.Sensor == sensor {
			return r
		}
	}
	t.Fatalf("no reading for chip %q sensor %q", chip, sensor)
	return SensorReading{}
}

func TestParseSensorsJSON(t *testing.T) {
	readings := ParseSensorsJSON([]byte(sensorsSample))
	require.Len(t, readings, 4)

	pkg := findReading(t, readings, "coretemp_isa_0000", "Package_id_0")
	assert.Equal(t, SensorTemp, pkg.Kind)
	assert.InDelta(t, 48.0, pkg.Value, 1e-9)
	assert.True(t, pkg.HasMax)
	assert.InDelta(t, 84.0, pkg.Max, 1e-9)
	assert.True(t, pkg.HasCrit)
	assert.InDelta(t, 100.0, pkg.Crit, 1e-9)
	assert.Equal(t, "Package id 0", pkg.Label)

	// The -273.15 critical value is the unset sentinel and is dropped.
	core0 := findReading(t, readings, "coretemp_isa_0000", "Core_0")
	assert.True(t, core0.HasMax)
	assert.False(t, core0.HasCrit)

	fan := findReading(t, readings, "nct6798_isa_0290", "fan1")
	assert.Equal(t, SensorFan, fan.Kind)
	assert.InDelta(t, 1234.0, fan.Value, 1e-9)

	volt := findReading(t, readings, "nct6798_isa_0290", "in0")
	assert.Equal(t, SensorVoltage, volt.Kind)
	assert.InDelta(t, 1.02, volt.Value, 1e-9)
}

func TestParseSensorsJSON_Malformed(t *testing.T) {
	assert.Nil(t, ParseSensorsJSON([]byte("not json")))
	assert.Empty(t, ParseSensorsJSON([]byte("{}")))
}

func TestParseSensorsJSON_FeatureWithoutInputDropped(t *testing.T) {
	data := []byte(`{"chip": {"limits-only": {"temp1_max": 90.0}}}`)
	assert.Empty(t, ParseSensorsJSON(data))
}

func TestParseSensorsJSON_Idempotent(t *testing.T) {
	first := ParseSensorsJSON([]byte(sensorsSample))
	second := ParseSensorsJSON([]byte(sensorsSample))
	assert.ElementsMatch(t, first, second)
}
