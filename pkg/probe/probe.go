package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Func is a single capability test. It must be side-effect free, bounded
// by the context it receives, and must not depend on other probes.
type Func func(ctx context.Context) (bool, error)

// Probe pairs a capability with its detection function.
type Probe struct {
	Capability Capability
	Detect     Func
}

// Registry is the static catalogue of capability probes.
type Registry struct {
	probes  []Probe
	timeout time.Duration
}

// NewRegistry creates a registry with the given per-probe timeout. If no
// probes are supplied the default catalogue is used.
func NewRegistry(timeout time.Duration, probes ...Probe) *Registry {
	if len(probes) == 0 {
		probes = defaultProbes()
	}
	return &Registry{probes: probes, timeout: timeout}
}

// Detect runs every registered probe exactly once and freezes the
// results into a Set. A probe that returns an error, panics, or exceeds
// its timeout resolves to false; it never aborts detection of the
// remaining probes. Failures are logged at debug level only.
func (r *Registry) Detect(ctx context.Context) Set {
	set := make(Set, len(r.probes))

	for _, p := range r.probes {
		ok, err := r.runOne(ctx, p)
		if err != nil {
			slog.Debug("capability probe failed",
				slog.String("capability", string(p.Capability)),
				slog.Any("error", err))
			ok = false
		}
		set[p.Capability] = ok
		if ok {
			slog.Info("capability detected", slog.String("capability", string(p.Capability)))
		}
	}

	return set
}

// runOne executes a single probe under the registry timeout, converting
// panics into ordinary failures so one misbehaving probe cannot take
// down detection.
func (r *Registry) runOne(ctx context.Context, p Probe) (ok bool, err error) {
	probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			err = fmt.Errorf("probe panicked: %v", rec)
		}
	}()

	return p.Detect(probeCtx)
}
