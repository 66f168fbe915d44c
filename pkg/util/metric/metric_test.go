// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package metric

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testMetrics struct {
	Started  *Counter
	Active   *Gauge
	Rows     *Histogram
	Nested   nestedMetrics
	Missing  *Counter
	internal *Counter
}

type nestedMetrics struct {
	Faults *Counter
}

func (nestedMetrics) MetricStruct() {}

func TestRegistryAddMetricStruct(t *testing.T) {
	m := testMetrics{
		Started: NewCounter(Metadata{Name: "test.started"}),
		Active:  NewGauge(Metadata{Name: "test.active"}),
		Rows: NewHistogram(HistogramOptions{
			Metadata: Metadata{Name: "test.rows"},
			Buckets:  Count64Buckets,
		}),
		Nested:   nestedMetrics{Faults: NewCounter(Metadata{Name: "test.faults"})},
		internal: NewCounter(Metadata{Name: "test.internal"}),
	}
	r := NewRegistry()
	require.NoError(t, r.AddMetricStruct(&m))

	m.Started.Inc(3)
	m.Active.Inc(5)
	m.Active.Dec(2)
	m.Rows.RecordValue(10)
	m.Rows.RecordValue(20)
	m.Nested.Faults.Inc(1)

	got := map[string]float64{}
	var names []string
	r.Each(func(name string, val float64) {
		names = append(names, name)
		got[name] = val
	})
	require.Equal(t, []string{"test.active", "test.faults", "test.rows", "test.started"}, names)
	require.Equal(t, 3.0, got["test.started"])
	require.Equal(t, 3.0, got["test.active"])
	require.Equal(t, 15.0, got["test.rows"])
	require.Equal(t, 1.0, got["test.faults"])
	require.EqualValues(t, 2, m.Rows.TotalCount())
	require.Equal(t, 30.0, m.Rows.TotalSum())

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	require.Len(t, families, 4)
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddMetric(NewCounter(Metadata{Name: "dup"})))
	require.Error(t, r.AddMetric(NewCounter(Metadata{Name: "dup"})))
	require.Error(t, r.AddMetricStruct(3))
}
