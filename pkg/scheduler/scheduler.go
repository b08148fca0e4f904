// Package scheduler drives the collection loop: one cycle per interval,
// serial or pooled execution, per-collector timeouts with abandonment,
// panic isolation, and outcome accounting.
//
// The scheduler owns all timing policy. Collectors never sleep, retry,
// or decide concurrency on their own.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cache"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/collector"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
)

// Config carries the scheduler's timing and concurrency policy.
type Config struct {
	// Interval between cycle starts.
	Interval time.Duration

	// Parallel selects pooled execution with Workers concurrent
	// collectors; otherwise collectors run one at a time.
	Parallel bool
	Workers  int

	// CollectorTimeout is the outer per-collector bound. A collector
	// exceeding it is abandoned: its outcome is recorded as failed and
	// the cycle moves on while the goroutine finishes in the background.
	CollectorTimeout time.Duration

	// Backoff is the pause after a cycle in which every collector
	// failed, before the next cycle is attempted.
	Backoff time.Duration

	// DrainTimeout bounds the shutdown wait for in-flight collectors.
	DrainTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = defaults.CollectionInterval
	}
	if c.Workers <= 0 {
		c.Workers = defaults.MaxWorkers
	}
	if c.CollectorTimeout <= 0 {
		c.CollectorTimeout = defaults.CollectorTimeout
	}
	if c.Backoff <= 0 {
		c.Backoff = defaults.CycleBackoff
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = defaults.DrainTimeout
	}
	return c
}

// Scheduler runs the eligible collectors on a fixed cadence.
type Scheduler struct {
	cfg        Config
	collectors []collector.Collector
	sink       *metrics.Sink
	cache      *cache.Cache
	log        *slog.Logger

	// inflight tracks launched collector goroutines for the shutdown
	// drain, including abandoned ones.
	inflight sync.WaitGroup
}

// New creates a scheduler over the given collectors and declares the
// outcome families.
func New(cfg Config, collectors []collector.Collector, sink *metrics.Sink, c *cache.Cache, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}

	sink.DeclareHistogram("node_exporter_collection_duration_seconds",
		"Time spent collecting metrics", []string{"collector"})
	sink.Declare("node_scrape_collector_duration_seconds",
		"Duration of the last collection", metrics.KindGauge, []string{"collector"})
	sink.Declare("node_scrape_collector_success",
		"Whether the last collection succeeded", metrics.KindGauge, []string{"collector"})
	sink.Declare("node_exporter_collection_errors_total",
		"Total collection failures", metrics.KindCounter, []string{"collector"})

	return &Scheduler{
		cfg:        cfg.withDefaults(),
		collectors: collectors,
		sink:       sink,
		cache:      c,
		log:        log.With("component", "scheduler"),
	}
}

// Run executes cycles until the context is cancelled, then drains
// in-flight collectors for at most DrainTimeout. The first cycle starts
// immediately rather than one interval in.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("collection loop starting",
		"collectors", len(s.collectors),
		"interval", s.cfg.Interval,
		"parallel", s.cfg.Parallel,
		"workers", s.cfg.Workers)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.log.Error("collection cycle failed", "error", err)
			select {
			case <-time.After(s.cfg.Backoff):
			case <-ctx.Done():
				return s.drain()
			}
		}
		s.cache.ClearExpired()

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return s.drain()
		}
	}
}

// runCycle runs every collector once. It returns an error only when all
// collectors failed, which signals an environment-level problem worth
// backing off for; individual failures are recorded and tolerated.
func (s *Scheduler) runCycle(ctx context.Context) error {
	if len(s.collectors) == 0 {
		return nil
	}
	start := time.Now()

	var failed int
	if s.cfg.Parallel {
		failed = s.cycleParallel(ctx)
	} else {
		failed = s.cycleSerial(ctx)
	}

	s.log.Debug("cycle complete",
		"duration", time.Since(start).Round(time.Millisecond),
		"failed", failed)

	if failed == len(s.collectors) {
		return fmt.Errorf("all %d collectors failed", failed)
	}
	return nil
}

func (s *Scheduler) cycleSerial(ctx context.Context) int {
	failed := 0
	for _, c := range s.collectors {
		if ctx.Err() != nil {
			return failed
		}
		if !s.record(c, s.await(ctx, s.launch(ctx, c))) {
			failed++
		}
	}
	return failed
}

func (s *Scheduler) cycleParallel(ctx context.Context) int {
	sem := make(chan struct{}, s.cfg.Workers)

	type job struct {
		c    collector.Collector
		done <-chan outcome
	}
	jobs := make([]job, 0, len(s.collectors))
	for _, c := range s.collectors {
		c := c
		done := make(chan outcome, 1)
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			done <- s.invoke(ctx, c)
		}()
		jobs = append(jobs, job{c: c, done: done})
	}

	failed := 0
	for _, j := range jobs {
		if !s.record(j.c, s.await(ctx, j.done)) {
			failed++
		}
	}
	return failed
}

type outcome struct {
	err      error
	duration time.Duration
}

// launch starts one collector in its own goroutine so the serial path
// shares the abandonment semantics of the pooled path.
func (s *Scheduler) launch(ctx context.Context, c collector.Collector) <-chan outcome {
	done := make(chan outcome, 1)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		done <- s.invoke(ctx, c)
	}()
	return done
}

// invoke runs one collector under the per-collector timeout with panic
// isolation. A panicking collector must not take down the process.
func (s *Scheduler) invoke(ctx context.Context, c collector.Collector) (out outcome) {
	start := time.Now()
	defer func() {
		out.duration = time.Since(start)
		if r := recover(); r != nil {
			out.err = fmt.Errorf("collector panicked: %v", r)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.CollectorTimeout)
	defer cancel()

	out.err = c.Collect(runCtx)
	return out
}

// await waits for a collector's outcome, abandoning it once the outer
// timeout passes. The abandoned goroutine keeps running to completion;
// its late result is discarded through the buffered channel.
func (s *Scheduler) await(ctx context.Context, done <-chan outcome) outcome {
	timer := time.NewTimer(s.cfg.CollectorTimeout + time.Second)
	defer timer.Stop()

	select {
	case out := <-done:
		return out
	case <-timer.C:
		return outcome{err: errAbandoned, duration: s.cfg.CollectorTimeout}
	case <-ctx.Done():
		return outcome{err: ctx.Err()}
	}
}

var errAbandoned = errors.New("collector abandoned after timeout")

// record writes the outcome metrics and returns whether the collection
// succeeded.
func (s *Scheduler) record(c collector.Collector, out outcome) bool {
	name := c.Name()
	seconds := out.duration.Seconds()
	s.sink.ObserveDuration("node_exporter_collection_duration_seconds", seconds, name)
	s.sink.Set("node_scrape_collector_duration_seconds", seconds, name)

	if out.err != nil {
		s.sink.Set("node_scrape_collector_success", 0, name)
		s.sink.Increment("node_exporter_collection_errors_total", 1, name)
		s.log.Warn("collector failed", "collector", name, "error", out.err)
		return false
	}

	s.sink.Set("node_scrape_collector_success", 1, name)
	return true
}

// drain waits for in-flight collectors to finish, bounded by the drain
// timeout. Collectors still running afterwards are abandoned for good.
func (s *Scheduler) drain() error {
	finished := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.log.Info("collection loop stopped")
		return nil
	case <-time.After(s.cfg.DrainTimeout):
		s.log.Warn("shutdown drain timed out, abandoning in-flight collectors")
		return nil
	}
}
