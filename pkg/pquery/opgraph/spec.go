// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opgraph

import (
	"context"
	"iter"

	"github.com/cockroachdb/pquery/pkg/pquery/merge"
	"github.com/cockroachdb/pquery/pkg/pquery/partition"
	"github.com/cockroachdb/pquery/pkg/pquery/sorter"
)

// Equality is an externally supplied equality comparer. A nil *Equality
// means Go equality on comparable values.
type Equality struct {
	Equal func(a, b any) bool
	Hash  func(a any) uint64
}

// StartSpec is the payload of a Start node.
type StartSpec struct {
	// Source is a partition.RandomAccess or a partition.ForwardOnly.
	Source       interface{}
	Partitioning partition.Kind
}

// MapSpec is the payload of a Map node. Exactly one of the functions is set.
type MapSpec struct {
	Fn      func(any) any
	Indexed func(any, int64) any
}

// FilterSpec is the payload of a Filter node. Exactly one of the functions is
// set.
type FilterSpec struct {
	Pred    func(any) bool
	Indexed func(any, int64) bool
}

// FlatMapSpec is the payload of a FlatMap node.
type FlatMapSpec struct {
	Fn func(any) iter.Seq[any]
}

// GroupBySpec is the payload of a GroupBy node.
type GroupBySpec struct {
	Key func(any) any
	// Elem projects grouped elements; nil keeps them as they are.
	Elem   func(any) any
	Result func(key any, elems []any) any
	Eq     *Equality
}

// JoinSpec is the payload of Join and GroupJoin nodes. Result is set for
// Join, GroupResult for GroupJoin.
type JoinSpec struct {
	OuterKey    func(any) any
	InnerKey    func(any) any
	Result      func(outer, inner any) any
	GroupResult func(outer any, inners []any) any
	Eq          *Equality
}

// OrderBySpec is the payload of an OrderBy node.
type OrderBySpec struct {
	Chain *sorter.Chain
}

// LimitSpec is the payload of Head and Tail nodes. Either Count is used, or
// one of the while predicates is set.
type LimitSpec struct {
	Count        int64
	While        func(any) bool
	WhileIndexed func(any, int64) bool
}

// IsWhile returns whether the limit is predicate based.
func (s LimitSpec) IsWhile() bool {
	return s.While != nil || s.WhileIndexed != nil
}

// ZipSpec is the payload of a Zip node.
type ZipSpec struct {
	Fn func(a, b any) any
}

// SetOpKind selects the set operation of a SetOp node.
type SetOpKind uint8

const (
	// Distinct removes duplicates from its only input.
	Distinct SetOpKind = iota
	// Union is the distinct elements of both inputs.
	Union
	// Intersect is the distinct elements of the first input that are also in
	// the second.
	Intersect
	// Except is the distinct elements of the first input that are not in the
	// second.
	Except
)

func (k SetOpKind) String() string {
	switch k {
	case Distinct:
		return "distinct"
	case Union:
		return "union"
	case Intersect:
		return "intersect"
	default:
		return "except"
	}
}

// SetOpSpec is the payload of a SetOp node.
type SetOpSpec struct {
	Op SetOpKind
	Eq *Equality
}

// CastSpec is the payload of a Cast node. Convert reports whether the element
// has the target type. Strict casts fail on mismatches, non-strict casts
// (OfType) drop them.
type CastSpec struct {
	Convert func(any) (any, bool)
	Strict  bool
	Target  string
}

// DefaultIfEmptySpec is the payload of a DefaultIfEmpty node.
type DefaultIfEmptySpec struct {
	Value any
}

// ExecutionMode controls whether a query may run sequentially.
type ExecutionMode uint8

const (
	// ExecutionDefault lets the engine run small queries sequentially.
	ExecutionDefault ExecutionMode = iota
	// ExecutionForceParallelism always uses the resolved partition count.
	ExecutionForceParallelism
)

func (m ExecutionMode) String() string {
	if m == ExecutionForceParallelism {
		return "force-parallelism"
	}
	return "default"
}

// ExecutionModeSpec is the payload of an ExecutionModeMarker node.
type ExecutionModeSpec struct {
	Mode ExecutionMode
}

// MergeOptionsSpec is the payload of a MergeOptionsMarker node.
type MergeOptionsSpec struct {
	Buffering merge.Buffering
}

// DegreeOfParallelismSpec is the payload of a DegreeOfParallelism node.
type DegreeOfParallelismSpec struct {
	N int
}

// CancellationSpec is the payload of a CancellationSignal node.
type CancellationSpec struct {
	Signal context.Context
}
