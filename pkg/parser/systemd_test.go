package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unitListSample = `  cron.service          loaded active   running Regular background program processing daemon
  ssh.service           loaded active   running OpenBSD Secure Shell server
  postfix.service       loaded inactive dead    Postfix Mail Transport Agent
● failed-thing.service  loaded failed   failed  Something broken
  tmp.mount             loaded active   mounted Temporary Directory /tmp
  logrotate.timer       loaded active   waiting Rotate log files
bad row
`

func TestParseUnitList_StateCounts(t *testing.T) {
	listing := ParseUnitList(unitListSample)

	assert.Equal(t, 4, listing.StateCounts["active"])
	assert.Equal(t, 1, listing.StateCounts["inactive"])
	assert.Equal(t, 1, listing.StateCounts["failed"])
}

func TestParseUnitList_ServiceRecords(t *testing.T) {
	listing := ParseUnitList(unitListSample)

	// Only .service units get per-unit records; mounts and timers only
	// feed the state tallies.
	require.Len(t, listing.Services, 4)

	byName := make(map[string]ServiceUnit, len(listing.Services))
	for _, svc := range listing.Services {
		byName[svc.Name] = svc
	}

	assert.True(t, byName["cron.service"].Active)
	assert.True(t, byName["ssh.service"].Active)
	assert.False(t, byName["postfix.service"].Active)
	assert.Equal(t, "dead", byName["postfix.service"].SubState)
	assert.False(t, byName["failed-thing.service"].Active)
	assert.Equal(t, "failed", byName["failed-thing.service"].ActiveState)
}

func TestParseUnitList_Empty(t *testing.T) {
	listing := ParseUnitList("")
	assert.Empty(t, listing.Services)
	assert.Empty(t, listing.StateCounts)
}

func TestParseFailedCount(t *testing.T) {
	assert.Equal(t, 0, ParseFailedCount(""))
	assert.Equal(t, 0, ParseFailedCount("\n\n"))
	assert.Equal(t, 2, ParseFailedCount("a.service loaded failed failed x\nb.service loaded failed failed y\n"))
}

func TestParseUnitList_Idempotent(t *testing.T) {
	assert.Equal(t, ParseUnitList(unitListSample), ParseUnitList(unitListSample))
}
