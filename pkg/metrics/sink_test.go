package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	return NewSink(prometheus.NewRegistry())
}

func TestSet_GaugeMovesBothDirections(t *testing.T) {
	s := newTestSink(t)
	s.Declare("node_load1", "1 minute load average", KindGauge, nil)

	s.Set("node_load1", 2.5)
	s.Set("node_load1", 1.0)

	expected := `
# HELP node_load1 1 minute load average
# TYPE node_load1 gauge
node_load1 1
`
	require.NoError(t, testutil.CollectAndCompare(s, strings.NewReader(expected), "node_load1"))
}

func TestIncrementTo_NeverMovesBackward(t *testing.T) {
	s := newTestSink(t)
	s.Declare("node_forks_total", "Total forks since boot", KindCounter, nil)

	s.IncrementTo("node_forks_total", 100)
	s.IncrementTo("node_forks_total", 90)

	expected := `
# HELP node_forks_total Total forks since boot
# TYPE node_forks_total counter
node_forks_total 100
`
	require.NoError(t, testutil.CollectAndCompare(s, strings.NewReader(expected), "node_forks_total"))
}

func TestIncrement_AccumulatesDeltas(t *testing.T) {
	s := newTestSink(t)
	s.Declare("errors_total", "Collection errors", KindCounter, []string{"collector"})

	s.Increment("errors_total", 1, "docker")
	s.Increment("errors_total", 1, "docker")
	s.Increment("errors_total", 1, "mdadm")

	expected := `
# HELP errors_total Collection errors
# TYPE errors_total counter
errors_total{collector="docker"} 2
errors_total{collector="mdadm"} 1
`
	require.NoError(t, testutil.CollectAndCompare(s, strings.NewReader(expected), "errors_total"))
}

func TestWrite_LabelArityMismatchDropped(t *testing.T) {
	s := newTestSink(t)
	s.Declare("node_network_up", "Interface is up", KindGauge, []string{"device"})

	// Wrong arity never reaches the series table.
	s.Set("node_network_up", 1)
	s.Set("node_network_up", 1, "eth0", "extra")
	s.Set("node_network_up", 1, "eth0")

	assert.Equal(t, 1, testutil.CollectAndCount(s, "node_network_up"))
}

func TestSetInfo_EmitsConstantOne(t *testing.T) {
	s := newTestSink(t)
	s.DeclareInfo("node_info", "Node information")

	s.SetInfo("node_info", map[string]string{"kernel": "6.8.0", "hostname": "pve1"})

	expected := `
# HELP node_info Node information
# TYPE node_info gauge
node_info{hostname="pve1",kernel="6.8.0"} 1
`
	require.NoError(t, testutil.CollectAndCompare(s, strings.NewReader(expected), "node_info"))
}

func TestObserveDuration_RecordsHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewSink(reg)
	s.DeclareHistogram("collection_seconds", "Collection duration", []string{"collector"})

	s.ObserveDuration("collection_seconds", 0.25, "base")
	s.ObserveDuration("collection_seconds", 0.75, "base")

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() == "collection_seconds" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			h := mf.GetMetric()[0].GetHistogram()
			assert.Equal(t, uint64(2), h.GetSampleCount())
			assert.InDelta(t, 1.0, h.GetSampleSum(), 1e-9)
		}
	}
	assert.True(t, found)
}

func TestUndeclaredMetricIgnored(t *testing.T) {
	s := newTestSink(t)

	// Must not panic or create series.
	s.Set("never_declared", 1)
	s.IncrementTo("never_declared", 1)
	s.Increment("never_declared", 1)

	assert.Equal(t, 0, testutil.CollectAndCount(s))
}
