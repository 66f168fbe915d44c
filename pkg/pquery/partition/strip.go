// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package partition

// NewStrip assigns the elements of src round-robin to n partitions: the i-th
// partition gets indices i, i+n, i+2n and so on. Work is spread evenly even
// when the cost of elements grows along the source.
func NewStrip(src RandomAccess, n int) *Set {
	length := src.Len()
	parts := make([]Partition, n)
	for i := range parts {
		start := i
		parts[i] = func(yield func(int64, any) bool) {
			for j := start; j < length; j += n {
				if !yield(int64(j), src.At(j)) {
					return
				}
			}
		}
	}
	return &Set{Partitions: parts, Kind: Strip}
}
