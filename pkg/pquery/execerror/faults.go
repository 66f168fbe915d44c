// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package execerror

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pquery/pkg/util/syncutil"
)

// FaultSet is the error reported at the join barrier when one or more workers
// faulted. It keeps every fault in the order in which they were recorded.
// The first fault is the primary one: Error() starts with its message and
// Unwrap returns it, so errors.Is and errors.As see through to it.
type FaultSet struct {
	faults []error
}

func (f *FaultSet) Error() string {
	if len(f.faults) == 1 {
		return f.faults[0].Error()
	}
	return fmt.Sprintf("%v (and %d more faults)", f.faults[0], len(f.faults)-1)
}

// Unwrap returns the first fault.
func (f *FaultSet) Unwrap() error { return f.faults[0] }

// Len returns the number of faults.
func (f *FaultSet) Len() int { return len(f.faults) }

// Faults returns every fault contained in err. If err does not contain a
// FaultSet, it is returned as the only element; a nil err yields nil.
func Faults(err error) []error {
	if err == nil {
		return nil
	}
	var fs *FaultSet
	if errors.As(err, &fs) {
		return append([]error(nil), fs.faults...)
	}
	return []error{err}
}

// FaultCollector accumulates faults raised concurrently by workers.
type FaultCollector struct {
	mu     syncutil.Mutex
	faults []error
}

// Add records a fault. It returns true if it was the first one.
func (c *FaultCollector) Add(err error) (first bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = append(c.faults, err)
	return len(c.faults) == 1
}

// Err returns nil if no fault was recorded, or a FaultSet otherwise.
func (c *FaultCollector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.faults) == 0 {
		return nil
	}
	return &FaultSet{faults: append([]error(nil), c.faults...)}
}
