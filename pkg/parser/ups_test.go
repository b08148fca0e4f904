package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUPSList(t *testing.T) {
	assert.Equal(t, []string{"apc1500", "rack-ups"}, ParseUPSList("apc1500\nrack-ups\n\n"))
	assert.Empty(t, ParseUPSList(""))
}

func TestParseUPSVars(t *testing.T) {
	text := `battery.charge: 100
battery.runtime: 1332
battery.voltage: 27.3
input.voltage: 230.1
ups.load: 23
ups.status: OL
line without colon
`
	vars := ParseUPSVars(text)
	require.Len(t, vars, 6)

	assert.Equal(t, "100", vars["battery.charge"])
	assert.Equal(t, "27.3", vars["battery.voltage"])
	assert.Equal(t, "OL", vars["ups.status"])
}
