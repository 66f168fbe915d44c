// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package metric

import (
	"reflect"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pquery/pkg/util/syncutil"
	"github.com/prometheus/client_golang/prometheus"
)

// Struct can be implemented by the types of members of a metric container so
// that the members get automatically registered.
type Struct interface {
	MetricStruct()
}

// Registry is a list of metrics. It provides a simple way of iterating over
// them and exports them to a prometheus registry.
type Registry struct {
	mu struct {
		syncutil.Mutex
		tracked map[string]Iterable
	}
	prom *prometheus.Registry
}

// NewRegistry creates a new Registry.
func NewRegistry() *Registry {
	r := &Registry{prom: prometheus.NewRegistry()}
	r.mu.tracked = map[string]Iterable{}
	return r
}

// AddMetric adds the passed-in metric to the registry.
func (r *Registry) AddMetric(metric Iterable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := metric.GetName()
	if _, ok := r.mu.tracked[name]; ok {
		return errors.Newf("metric %q already registered", name)
	}
	if err := r.prom.Register(metric.Collector()); err != nil {
		return errors.Wrapf(err, "registering metric %q", name)
	}
	r.mu.tracked[name] = metric
	return nil
}

// AddMetricStruct examines all fields of metricStruct and adds all Iterable
// or metric.Struct objects to the registry.
func (r *Registry) AddMetricStruct(metricStruct interface{}) error {
	v := reflect.Indirect(reflect.ValueOf(metricStruct))
	if v.Kind() != reflect.Struct {
		return errors.AssertionFailedf("%T is not a struct", metricStruct)
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !t.Field(i).IsExported() {
			continue
		}
		if field.Kind() == reflect.Pointer && field.IsNil() {
			continue
		}
		switch vfield := field.Interface().(type) {
		case Iterable:
			if err := r.AddMetric(vfield); err != nil {
				return err
			}
		case Struct:
			if err := r.AddMetricStruct(vfield); err != nil {
				return err
			}
		}
	}
	return nil
}

// Each calls f for every metric in the registry, in name order.
func (r *Registry) Each(f func(name string, val float64)) {
	r.mu.Lock()
	names := make([]string, 0, len(r.mu.tracked))
	metrics := make(map[string]Iterable, len(r.mu.tracked))
	for name, m := range r.mu.tracked {
		names = append(names, name)
		metrics[name] = m
	}
	r.mu.Unlock()
	sort.Strings(names)
	for _, name := range names {
		f(name, metrics[name].Value())
	}
}

// Gatherer returns the prometheus gatherer for the registered metrics.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.prom }
