// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package metric

import (
	"math"
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Unit describes the unit a metric is measured in.
type Unit int32

const (
	// Unit_COUNT is a plain count of events or objects.
	Unit_COUNT Unit = iota
	// Unit_SECONDS measures durations.
	Unit_SECONDS
	// Unit_BYTES measures sizes.
	Unit_BYTES
)

func (u Unit) String() string {
	switch u {
	case Unit_SECONDS:
		return "SECONDS"
	case Unit_BYTES:
		return "BYTES"
	default:
		return "COUNT"
	}
}

// Metadata holds metadata about a metric.
type Metadata struct {
	Name        string
	Help        string
	Measurement string
	Unit        Unit
}

// GetName returns the metric name.
func (m Metadata) GetName() string { return m.Name }

// promName converts a dotted metric name to a prometheus compatible one.
func (m Metadata) promName() string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(m.Name)
}

func (m Metadata) help() string {
	if m.Help == "" {
		return m.Name
	}
	return m.Help
}

// Iterable is implemented by every metric type in this package.
type Iterable interface {
	// GetName returns the name of the metric.
	GetName() string
	// Collector returns the prometheus collector backing the metric.
	Collector() prometheus.Collector
	// Value returns the current value of the metric.
	Value() float64
}

// Counter is a monotonically increasing count.
type Counter struct {
	Metadata
	count atomic.Int64
	prom  prometheus.CounterFunc
}

// NewCounter creates a counter.
func NewCounter(metadata Metadata) *Counter {
	c := &Counter{Metadata: metadata}
	c.prom = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: metadata.promName(),
		Help: metadata.help(),
	}, c.Value)
	return c
}

// Inc increments the counter by v.
func (c *Counter) Inc(v int64) { c.count.Add(v) }

// Count returns the current count.
func (c *Counter) Count() int64 { return c.count.Load() }

// Value implements Iterable.
func (c *Counter) Value() float64 { return float64(c.Count()) }

// Collector implements Iterable.
func (c *Counter) Collector() prometheus.Collector { return c.prom }

// Gauge is a value that can go up and down.
type Gauge struct {
	Metadata
	value atomic.Int64
	prom  prometheus.GaugeFunc
}

// NewGauge creates a gauge.
func NewGauge(metadata Metadata) *Gauge {
	g := &Gauge{Metadata: metadata}
	g.prom = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: metadata.promName(),
		Help: metadata.help(),
	}, g.Value)
	return g
}

// Update sets the gauge's value.
func (g *Gauge) Update(v int64) { g.value.Store(v) }

// Inc adds v to the gauge's value. v may be negative.
func (g *Gauge) Inc(v int64) { g.value.Add(v) }

// Dec subtracts v from the gauge's value.
func (g *Gauge) Dec(v int64) { g.value.Add(-v) }

// Snapshot returns the gauge's current value.
func (g *Gauge) Snapshot() int64 { return g.value.Load() }

// Value implements Iterable.
func (g *Gauge) Value() float64 { return float64(g.Snapshot()) }

// Collector implements Iterable.
func (g *Gauge) Collector() prometheus.Collector { return g.prom }

// Histogram records a distribution of observed values.
type Histogram struct {
	Metadata
	count atomic.Int64
	sum   atomic.Uint64 // float64 bits
	prom  prometheus.Histogram
}

// HistogramOptions configures a Histogram.
type HistogramOptions struct {
	Metadata
	// Buckets are the upper bounds of the histogram buckets. When empty,
	// prometheus.DefBuckets is used.
	Buckets []float64
}

// Count64Buckets are exponential buckets suited to element counts.
var Count64Buckets = prometheus.ExponentialBuckets(1, 4, 12)

// NewHistogram creates a histogram.
func NewHistogram(opts HistogramOptions) *Histogram {
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	return &Histogram{
		Metadata: opts.Metadata,
		prom: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    opts.promName(),
			Help:    opts.help(),
			Buckets: buckets,
		}),
	}
}

// RecordValue adds v to the distribution.
func (h *Histogram) RecordValue(v float64) {
	h.prom.Observe(v)
	h.count.Add(1)
	for {
		old := h.sum.Load()
		next := math.Float64bits(math.Float64frombits(old) + v)
		if h.sum.CompareAndSwap(old, next) {
			return
		}
	}
}

// TotalCount returns the number of recorded values.
func (h *Histogram) TotalCount() int64 { return h.count.Load() }

// TotalSum returns the sum of recorded values.
func (h *Histogram) TotalSum() float64 { return math.Float64frombits(h.sum.Load()) }

// Value implements Iterable. It returns the mean of recorded values.
func (h *Histogram) Value() float64 {
	n := h.TotalCount()
	if n == 0 {
		return 0
	}
	return h.TotalSum() / float64(n)
}

// Collector implements Iterable.
func (h *Histogram) Collector() prometheus.Collector { return h.prom }
