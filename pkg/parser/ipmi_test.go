package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ipmiSample = `CPU Temp         | 42.000     | degrees C  | ok    | 0.000 | 0.000 | 0.000 | 95.000 | 100.000 | 105.000
System Temp      | 38.000     | degrees C  | ok    | na | na | na | 80.000 | 85.000 | 90.000
FAN1             | 4200.000   | RPM        | ok    | 300.000 | 500.000 | 700.000 | 25300.000 | 25400.000 | 25500.000
FAN2             | na         | RPM        | ns    | na | na | na | na | na | na
PS1 Status       | not available | discrete | na  | na | na | na | na | na | na
12V              | 12.192     | Volts      | ok    | 10.173 | 10.299 | 10.740 | 12.945 | 13.071 | 13.260
bogus row
`

func TestParseIPMISensors(t *testing.T) {
	sensors := ParseIPMISensors(ipmiSample)
	require.Len(t, sensors, 4)

	assert.Equal(t, "CPU Temp", sensors[0].Name)
	assert.InDelta(t, 42.0, sensors[0].Value, 1e-9)
	assert.Equal(t, "degrees C", sensors[0].Unit)
	assert.Equal(t, "ok", sensors[0].Status)

	names := make([]string, len(sensors))
	for i, s := range sensors {
		names[i] = s.Name
	}
	assert.NotContains(t, names, "FAN2", `"na" values are skipped, not parsed as zero`)
	assert.NotContains(t, names, "PS1 Status")
	assert.Contains(t, names, "12V")
}

func TestParseIPMISensors_Empty(t *testing.T) {
	assert.Empty(t, ParseIPMISensors(""))
}

func TestParseIPMISensors_Idempotent(t *testing.T) {
	assert.Equal(t, ParseIPMISensors(ipmiSample), ParseIPMISensors(ipmiSample))
}
