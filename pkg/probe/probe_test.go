package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_MissingToolYieldsFalse(t *testing.T) {
	reg := NewRegistry(time.Second, Probe{
		Capability: CapDocker,
		Detect: func(_ context.Context) (bool, error) {
			return false, nil
		},
	})

	set := reg.Detect(context.Background())
	assert.False(t, set.Has(CapDocker))
}

func TestDetect_ProbeErrorResolvesToFalse(t *testing.T) {
	reg := NewRegistry(time.Second, Probe{
		Capability: CapIPMI,
		Detect: func(_ context.Context) (bool, error) {
			return true, errors.New("ipmitool exploded")
		},
	})

	set := reg.Detect(context.Background())
	assert.False(t, set.Has(CapIPMI), "a failing probe must resolve to false even if it claimed true")
}

func TestDetect_PanicDoesNotAbortOtherProbes(t *testing.T) {
	reg := NewRegistry(time.Second,
		Probe{
			Capability: CapZFS,
			Detect: func(_ context.Context) (bool, error) {
				panic("probe bug")
			},
		},
		Probe{
			Capability: CapMdadm,
			Detect: func(_ context.Context) (bool, error) {
				return true, nil
			},
		},
	)

	set := reg.Detect(context.Background())
	assert.False(t, set.Has(CapZFS))
	assert.True(t, set.Has(CapMdadm))
}

func TestDetect_TimeoutResolvesToFalse(t *testing.T) {
	reg := NewRegistry(10*time.Millisecond, Probe{
		Capability: CapSensors,
		Detect: func(ctx context.Context) (bool, error) {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(time.Second):
				return true, nil
			}
		},
	})

	set := reg.Detect(context.Background())
	assert.False(t, set.Has(CapSensors))
}

func TestSet_HasAll(t *testing.T) {
	set := Set{CapDocker: true, CapPodman: false, CapSystemd: true}

	assert.True(t, set.HasAll(CapDocker))
	assert.True(t, set.HasAll(CapDocker, CapSystemd))
	assert.False(t, set.HasAll(CapDocker, CapPodman))
	assert.False(t, set.HasAll(CapMdadm))
}

func TestSet_Enabled(t *testing.T) {
	set := Set{CapZFS: true, CapDocker: true, CapIPMI: false}

	enabled := set.Enabled()
	require.Len(t, enabled, 2)
	assert.Equal(t, []string{"docker", "zfs"}, enabled)
}

func TestDefaultProbes_CoverClosedSet(t *testing.T) {
	probes := defaultProbes()
	require.Len(t, probes, len(All()))

	seen := make(map[Capability]bool, len(probes))
	for _, p := range probes {
		assert.False(t, seen[p.Capability], "duplicate probe for %s", p.Capability)
		seen[p.Capability] = true
		assert.NotNil(t, p.Detect)
	}
	for _, c := range All() {
		assert.True(t, seen[c], "no probe registered for %s", c)
	}
}
