// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

/*
Package metric provides the query engine's counters, gauges and histograms.
Every metric is backed by a prometheus collector, so that a Registry can be
exported with promhttp, and also keeps its own value so that it can be read
cheaply in tests and by the benchmark tool.

# Adding a new metric

Define the metric's Metadata and construct it:

	var metaQueriesStarted = metric.Metadata{
		Name:        "pquery.queries.started",
		Help:        "Number of queries started",
		Measurement: "Queries",
		Unit:        metric.Unit_COUNT,
	}

	type Metrics struct {
		QueriesStarted *metric.Counter
	}

	func MakeMetrics() Metrics {
		return Metrics{QueriesStarted: metric.NewCounter(metaQueriesStarted)}
	}

	// MetricStruct implements metric.Struct.
	func (Metrics) MetricStruct() {}

Then add the struct to a Registry with AddMetricStruct. Every exported field
that implements Iterable is registered.

# Testing

Metric values can be inspected directly via Count and Value, or for a whole
registry via Each.
*/
package metric
