// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package partition

// Bounds returns the half-open index range [lo, hi) of the i-th of n
// contiguous ranges covering [0, length). Range sizes differ by at most one,
// with the larger ranges first.
func Bounds(length, n, i int) (lo, hi int) {
	base, rem := length/n, length%n
	lo = i*base + min(i, rem)
	hi = lo + base
	if i < rem {
		hi++
	}
	return lo, hi
}

// NewRange splits src into n contiguous index ranges. Each worker reads only
// its own range, so there is no contention between partitions.
func NewRange(src RandomAccess, n int) *Set {
	length := src.Len()
	parts := make([]Partition, n)
	for i := range parts {
		lo, hi := Bounds(length, n, i)
		parts[i] = func(yield func(int64, any) bool) {
			for j := lo; j < hi; j++ {
				if !yield(int64(j), src.At(j)) {
					return
				}
			}
		}
	}
	return &Set{Partitions: parts, Kind: Range}
}
