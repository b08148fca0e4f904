// Package metrics implements the metric sink: named, labeled numeric
// series declared once and updated by collectors each cycle.
//
// The sink is a prometheus.Collector that emits const metrics from its
// series table on every scrape. Collectors write absolute values into
// the table; the sink guarantees counters never move backward within a
// process lifetime, because source systems report cumulative counters,
// not deltas.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Kind is the value semantics of a metric family.
type Kind int

const (
	// KindGauge is an absolute value that may move either direction.
	KindGauge Kind = iota
	// KindCounter is monotonic; writes set the absolute observed value
	// and regressions are ignored.
	KindCounter
	// KindInfo is a static string map exported as a gauge fixed at 1.
	KindInfo
)

type series struct {
	labelValues []string
	value       float64
}

type family struct {
	desc       *prometheus.Desc
	kind       Kind
	labelNames []string
	series     map[string]*series
}

// Sink holds all declared metric families and their live series.
type Sink struct {
	mu         sync.RWMutex
	families   map[string]*family
	histograms map[string]*prometheus.HistogramVec
	infos      map[string]*infoFamily
	reg        prometheus.Registerer
}

type infoFamily struct {
	help   string
	labels map[string]string
}

// NewSink creates a sink and registers it with the given registerer.
func NewSink(reg prometheus.Registerer) *Sink {
	s := &Sink{
		families:   make(map[string]*family),
		histograms: make(map[string]*prometheus.HistogramVec),
		infos:      make(map[string]*infoFamily),
		reg:        reg,
	}
	reg.MustRegister(s)
	return s
}

// Declare registers a gauge or counter family. Declaring the same name
// twice is a programming error and panics, matching prometheus
// registration semantics.
func (s *Sink) Declare(name, help string, kind Kind, labelNames []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.families[name]; ok {
		panic(fmt.Sprintf("metrics: family %q declared twice", name))
	}
	s.families[name] = &family{
		desc:       prometheus.NewDesc(name, help, labelNames, nil),
		kind:       kind,
		labelNames: labelNames,
		series:     make(map[string]*series),
	}
}

// DeclareHistogram registers a histogram family for duration
// observations. Histograms are backed by a prometheus HistogramVec
// registered alongside the sink.
func (s *Sink) DeclareHistogram(name, help string, labelNames []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.histograms[name]; ok {
		panic(fmt.Sprintf("metrics: histogram %q declared twice", name))
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    help,
		Buckets: prometheus.DefBuckets,
	}, labelNames)
	s.reg.MustRegister(hv)
	s.histograms[name] = hv
}

// DeclareInfo registers an info family: a static string map exported as
// a constant-1 gauge whose labels carry the strings.
func (s *Sink) DeclareInfo(name, help string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.infos[name]; ok {
		panic(fmt.Sprintf("metrics: info %q declared twice", name))
	}
	s.infos[name] = &infoFamily{help: help}
}

// Set writes an absolute gauge value for the labeled series.
func (s *Sink) Set(name string, value float64, labelValues ...string) {
	s.write(name, value, labelValues, false)
}

// IncrementTo sets a counter to the absolute observed value. A value
// lower than the current one is ignored: counters never reset backward
// within one process lifetime.
func (s *Sink) IncrementTo(name string, value float64, labelValues ...string) {
	s.write(name, value, labelValues, true)
}

// Increment adds a delta to a counter series, for counts the exporter
// itself originates (collection errors and the like).
func (s *Sink) Increment(name string, delta float64, labelValues ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, sr := s.lookup(name, labelValues)
	if f == nil {
		return
	}
	sr.value += delta
}

// SetInfo replaces the label map of an info family.
func (s *Sink) SetInfo(name string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inf, ok := s.infos[name]
	if !ok {
		return
	}
	inf.labels = labels
}

// ObserveDuration records a timing observation in seconds.
func (s *Sink) ObserveDuration(name string, seconds float64, labelValues ...string) {
	s.mu.RLock()
	hv, ok := s.histograms[name]
	s.mu.RUnlock()
	if ok {
		hv.WithLabelValues(labelValues...).Observe(seconds)
	}
}

func (s *Sink) write(name string, value float64, labelValues []string, monotonic bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, sr := s.lookup(name, labelValues)
	if f == nil {
		return
	}
	if monotonic && value < sr.value {
		return
	}
	sr.value = value
}

// lookup finds or creates the series for the label values. Undeclared
// names and label arity mismatches are dropped rather than panicking:
// a buggy collector must degrade its own metrics, not crash the scrape.
func (s *Sink) lookup(name string, labelValues []string) (*family, *series) {
	f, ok := s.families[name]
	if !ok || len(labelValues) != len(f.labelNames) {
		return nil, nil
	}

	key := strings.Join(labelValues, "\xff")
	sr, ok := f.series[key]
	if !ok {
		sr = &series{labelValues: append([]string(nil), labelValues...)}
		f.series[key] = sr
	}
	return f, sr
}

// Describe implements prometheus.Collector.
func (s *Sink) Describe(ch chan<- *prometheus.Desc) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.families {
		ch <- f.desc
	}
}

// Collect implements prometheus.Collector, emitting every live series
// as a const metric.
func (s *Sink) Collect(ch chan<- prometheus.Metric) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.families {
		vt := prometheus.GaugeValue
		if f.kind == KindCounter {
			vt = prometheus.CounterValue
		}
		for _, sr := range f.series {
			ch <- prometheus.MustNewConstMetric(f.desc, vt, sr.value, sr.labelValues...)
		}
	}

	for name, inf := range s.infos {
		if inf.labels == nil {
			continue
		}
		names := make([]string, 0, len(inf.labels))
		for k := range inf.labels {
			names = append(names, k)
		}
		sort.Strings(names)
		values := make([]string, len(names))
		for i, k := range names {
			values[i] = inf.labels[k]
		}
		desc := prometheus.NewDesc(name, inf.help, names, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, 1, values...)
	}
}
