// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package partition

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pquery/pkg/util/syncutil"
)

// Checker verifies partition invariants at runtime: no global index is
// produced twice across the partitions of a set, and each partition
// produces strictly ascending indices. Violations panic with an assertion
// failure, which the executor reports as a worker fault.
type Checker struct {
	mu   syncutil.Mutex
	seen *roaring64.Bitmap
}

// NewChecker creates an empty Checker.
func NewChecker() *Checker {
	return &Checker{seen: roaring64.New()}
}

// Record notes that idx was produced.
func (c *Checker) Record(idx int64) error {
	if idx < 0 {
		return errors.AssertionFailedf("negative partition index %d", idx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seen.CheckedAdd(uint64(idx)) {
		return errors.AssertionFailedf("index %d produced by more than one partition", idx)
	}
	return nil
}

// Seen returns a copy of the set of recorded indices.
func (c *Checker) Seen() *roaring64.Bitmap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen.Clone()
}

func (c *Checker) wrap(p Partition) Partition {
	return func(yield func(int64, any) bool) {
		last := int64(-1)
		for idx, v := range p {
			if idx <= last {
				panic(errors.AssertionFailedf("partition index %d after %d", idx, last))
			}
			last = idx
			if err := c.Record(idx); err != nil {
				panic(err)
			}
			if !yield(idx, v) {
				return
			}
		}
	}
}
