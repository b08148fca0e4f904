package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cache"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/collector"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
)

type stubCollector struct {
	name  string
	err   error
	delay time.Duration
	panic bool

	calls atomic.Int64
}

func (s *stubCollector) Name() string                 { return s.name }
func (s *stubCollector) Requires() []probe.Capability { return nil }

func (s *stubCollector) Collect(ctx context.Context) error {
	s.calls.Add(1)
	if s.panic {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func newTestScheduler(t *testing.T, cfg Config, collectors ...collector.Collector) (*Scheduler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink := metrics.NewSink(reg)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, collectors, sink, cache.New(time.Minute), log), reg
}

func successValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "node_scrape_collector_success" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "collector" && lp.GetValue() == name {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("no success series for %q", name)
	return 0
}

func TestRunCycleSerial(t *testing.T) {
	ok := &stubCollector{name: "ok"}
	bad := &stubCollector{name: "bad", err: errors.New("nope")}
	s, reg := newTestScheduler(t, Config{}, ok, bad)

	require.NoError(t, s.runCycle(context.Background()))

	assert.Equal(t, int64(1), ok.calls.Load())
	assert.Equal(t, int64(1), bad.calls.Load())
	assert.Equal(t, 1.0, successValue(t, reg, "ok"))
	assert.Equal(t, 0.0, successValue(t, reg, "bad"))
}

func TestRunCycleParallel(t *testing.T) {
	mk := func(name string) *stubCollector {
		return &stubCollector{name: name, delay: 20 * time.Millisecond}
	}
	a, b, c, d := mk("a"), mk("b"), mk("c"), mk("d")

	s, reg := newTestScheduler(t, Config{Parallel: true, Workers: 2}, a, b, c, d)
	require.NoError(t, s.runCycle(context.Background()))

	for _, stub := range []*stubCollector{a, b, c, d} {
		assert.Equal(t, int64(1), stub.calls.Load(), stub.name)
		assert.Equal(t, 1.0, successValue(t, reg, stub.name))
	}
}

func TestRunCycleAllFailed(t *testing.T) {
	bad1 := &stubCollector{name: "bad1", err: errors.New("x")}
	bad2 := &stubCollector{name: "bad2", err: errors.New("y")}
	s, _ := newTestScheduler(t, Config{}, bad1, bad2)

	assert.Error(t, s.runCycle(context.Background()))
}

func TestPanicIsolated(t *testing.T) {
	p := &stubCollector{name: "panicky", panic: true}
	ok := &stubCollector{name: "ok"}
	s, reg := newTestScheduler(t, Config{}, p, ok)

	require.NoError(t, s.runCycle(context.Background()))
	assert.Equal(t, 0.0, successValue(t, reg, "panicky"))
	assert.Equal(t, 1.0, successValue(t, reg, "ok"))
}

func TestSlowCollectorAbandoned(t *testing.T) {
	slow := &stubCollector{name: "slow", delay: time.Second}
	fast := &stubCollector{name: "fast"}
	s, reg := newTestScheduler(t, Config{CollectorTimeout: 20 * time.Millisecond}, slow, fast)

	start := time.Now()
	require.NoError(t, s.runCycle(context.Background()))

	assert.Less(t, time.Since(start), 800*time.Millisecond, "cycle must not wait out the slow collector")
	assert.Equal(t, 0.0, successValue(t, reg, "slow"))
	assert.Equal(t, 1.0, successValue(t, reg, "fast"))
}

func TestRunStopsOnCancel(t *testing.T) {
	ok := &stubCollector{name: "ok"}
	s, _ := newTestScheduler(t, Config{Interval: 5 * time.Millisecond, DrainTimeout: time.Second}, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	// Immediate first cycle plus at least one ticked cycle.
	assert.GreaterOrEqual(t, ok.calls.Load(), int64(2))
}

func TestEmptyCollectorsCycle(t *testing.T) {
	s, _ := newTestScheduler(t, Config{})
	require.NoError(t, s.runCycle(context.Background()))
}
