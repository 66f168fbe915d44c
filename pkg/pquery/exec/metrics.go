// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import "github.com/cockroachdb/pquery/pkg/util/metric"

var (
	metaQueriesStarted = metric.Metadata{
		Name:        "pquery.queries.started",
		Help:        "Number of queries started",
		Measurement: "Queries",
		Unit:        metric.Unit_COUNT,
	}
	metaWorkersSpawned = metric.Metadata{
		Name:        "pquery.workers.spawned",
		Help:        "Number of workers started, one per partition per stage",
		Measurement: "Workers",
		Unit:        metric.Unit_COUNT,
	}
	metaWorkersRunning = metric.Metadata{
		Name:        "pquery.workers.running",
		Help:        "Number of workers currently draining a partition",
		Measurement: "Workers",
		Unit:        metric.Unit_COUNT,
	}
	metaElementsProcessed = metric.Metadata{
		Name:        "pquery.elements.processed",
		Help:        "Number of elements handed to worker callbacks",
		Measurement: "Elements",
		Unit:        metric.Unit_COUNT,
	}
	metaFaults = metric.Metadata{
		Name:        "pquery.faults",
		Help:        "Number of worker faults",
		Measurement: "Faults",
		Unit:        metric.Unit_COUNT,
	}
	metaCancellations = metric.Metadata{
		Name:        "pquery.cancellations",
		Help:        "Number of queries stopped by a user cancellation signal",
		Measurement: "Queries",
		Unit:        metric.Unit_COUNT,
	}
	metaEarlyStops = metric.Metadata{
		Name:        "pquery.early_stops",
		Help:        "Number of queries short-circuited by their terminal operation",
		Measurement: "Queries",
		Unit:        metric.Unit_COUNT,
	}
	metaBarrierLatency = metric.Metadata{
		Name:        "pquery.barrier.latency",
		Help:        "Time spent materializing the input of barrier operators, in seconds",
		Measurement: "Latency",
		Unit:        metric.Unit_SECONDS,
	}
)

// Metrics are the executor's metrics.
type Metrics struct {
	QueriesStarted    *metric.Counter
	WorkersSpawned    *metric.Counter
	WorkersRunning    *metric.Gauge
	ElementsProcessed *metric.Counter
	Faults            *metric.Counter
	Cancellations     *metric.Counter
	EarlyStops        *metric.Counter
	BarrierLatency    *metric.Histogram
}

// MetricStruct implements metric.Struct.
func (Metrics) MetricStruct() {}

// MakeMetrics creates a new set of executor metrics.
func MakeMetrics() Metrics {
	return Metrics{
		QueriesStarted:    metric.NewCounter(metaQueriesStarted),
		WorkersSpawned:    metric.NewCounter(metaWorkersSpawned),
		WorkersRunning:    metric.NewGauge(metaWorkersRunning),
		ElementsProcessed: metric.NewCounter(metaElementsProcessed),
		Faults:            metric.NewCounter(metaFaults),
		Cancellations:     metric.NewCounter(metaCancellations),
		EarlyStops:        metric.NewCounter(metaEarlyStops),
		BarrierLatency:    metric.NewHistogram(metric.HistogramOptions{Metadata: metaBarrierLatency}),
	}
}

var defaultMetrics = MakeMetrics()

// DefaultMetrics returns the metrics updated by every query.
func DefaultMetrics() *Metrics { return &defaultMetrics }
