// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package pquery

import (
	"sync"

	"github.com/cockroachdb/pquery/pkg/pquery/exec"
	"github.com/cockroachdb/pquery/pkg/util/metric"
)

var registry struct {
	once sync.Once
	r    *metric.Registry
}

// Metrics returns a registry holding the metrics updated by every query of
// the process. Its Gatherer can be served by a Prometheus endpoint.
func Metrics() *metric.Registry {
	registry.once.Do(func() {
		r := metric.NewRegistry()
		if err := r.AddMetricStruct(exec.DefaultMetrics()); err != nil {
			panic(err)
		}
		registry.r = r
	})
	return registry.r
}
