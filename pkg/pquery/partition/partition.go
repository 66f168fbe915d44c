// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package partition splits a query source into independent partitions, one
// per worker. Every partition is a lazy sequence of (globalIndex, element)
// pairs whose indices are strictly ascending; the partitions of one Set are
// pairwise disjoint and together cover the source exactly once.
package partition

import (
	"iter"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pquery/pkg/settings"
)

// Kind is a partitioning strategy.
type Kind int

const (
	// Auto picks Range for random-access sources and Chunk otherwise.
	Auto Kind = iota
	// Range splits a random-access source into contiguous index ranges.
	Range
	// Chunk lets workers claim fixed-size chunks from a shared cursor.
	Chunk
	// Strip assigns elements round-robin to partitions.
	Strip
)

func (k Kind) String() string {
	switch k {
	case Auto:
		return "auto"
	case Range:
		return "range"
	case Chunk:
		return "chunk"
	case Strip:
		return "strip"
	default:
		return "unknown"
	}
}

// ChunkSize is the number of elements claimed at once by chunk partitions.
var ChunkSize = settings.RegisterIntSetting(
	"pquery.chunk_size",
	"number of elements a worker claims at once from a forward-only source",
	16,
	settings.PositiveInt,
)

// InvariantsEnabled turns on the partition invariants checker.
var InvariantsEnabled = settings.RegisterBoolSetting(
	"pquery.invariants.enabled",
	"verify that partitions never produce an index twice or out of order",
	false,
)

// RandomAccess is a source with a known length and constant time indexed
// access.
type RandomAccess interface {
	Len() int
	At(i int) any
}

// ForwardOnly is a source that can only be enumerated once, front to back.
type ForwardOnly interface {
	All() iter.Seq[any]
}

// Partition is a lazy sequence of elements tagged with their global index.
type Partition = iter.Seq2[int64, any]

// Set is the result of partitioning a source.
type Set struct {
	Partitions []Partition
	// Kind is the strategy that produced the partitions.
	Kind Kind

	checker *Checker
	closeFn func()
}

// Close releases resources held by the partitions. It must be called once
// all workers are done with them.
func (s *Set) Close() {
	if s.closeFn != nil {
		s.closeFn()
		s.closeFn = nil
	}
}

// Checker returns the invariants checker attached to the set, if any.
func (s *Set) Checker() *Checker { return s.checker }

// KnownLen returns the length of src and whether it is known ahead of
// enumeration.
func KnownLen(src interface{}) (int, bool) {
	if ra, ok := src.(RandomAccess); ok {
		return ra.Len(), true
	}
	return 0, false
}

// New splits src into n partitions using the requested strategy. Range and
// Strip require a RandomAccess source; for a forward-only source they fall
// back to Chunk.
func New(src interface{}, n int, kind Kind) (*Set, error) {
	if n < 1 {
		return nil, errors.AssertionFailedf("invalid partition count %d", n)
	}
	ra, isRA := src.(RandomAccess)
	var s *Set
	switch {
	case isRA && (kind == Auto || kind == Range):
		s = NewRange(ra, n)
	case isRA && kind == Strip:
		s = NewStrip(ra, n)
	case isRA && kind == Chunk:
		s = NewChunk(randomAccessSeq{ra}, n, int(ChunkSize.Get()))
	default:
		fo, ok := src.(ForwardOnly)
		if !ok {
			return nil, errors.AssertionFailedf("unsupported source type %T", src)
		}
		s = NewChunk(fo, n, int(ChunkSize.Get()))
	}
	if InvariantsEnabled.Get() {
		s.checker = NewChecker()
		for i, p := range s.Partitions {
			s.Partitions[i] = s.checker.wrap(p)
		}
	}
	return s, nil
}

// randomAccessSeq enumerates a random-access source front to back.
type randomAccessSeq struct {
	RandomAccess
}

func (r randomAccessSeq) All() iter.Seq[any] {
	return func(yield func(any) bool) {
		for i, n := 0, r.Len(); i < n; i++ {
			if !yield(r.At(i)) {
				return
			}
		}
	}
}

// Slice is a RandomAccess over a slice of elements.
type Slice[T any] []T

// Len implements RandomAccess.
func (s Slice[T]) Len() int { return len(s) }

// At implements RandomAccess.
func (s Slice[T]) At(i int) any { return s[i] }

// Seq is a ForwardOnly source over an iterator.
type Seq[T any] iter.Seq[T]

// All implements ForwardOnly.
func (s Seq[T]) All() iter.Seq[any] {
	return func(yield func(any) bool) {
		for v := range s {
			if !yield(v) {
				return
			}
		}
	}
}
