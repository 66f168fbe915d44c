// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opgraph

import (
	"context"
	"iter"

	"github.com/cockroachdb/pquery/pkg/pquery/execerror"
	"github.com/cockroachdb/pquery/pkg/pquery/merge"
	"github.com/cockroachdb/pquery/pkg/pquery/partition"
	"github.com/cockroachdb/pquery/pkg/pquery/sorter"
)

const (
	// MinDegreeOfParallelism is the smallest accepted explicit partition
	// count.
	MinDegreeOfParallelism = 1
	// MaxDegreeOfParallelism is the largest accepted explicit partition
	// count.
	MaxDegreeOfParallelism = 63
)

// argPanic raises an argument error. Composition errors are programming
// errors and surface synchronously, before anything runs.
func argPanic(op, arg, format string, args ...interface{}) {
	panic(execerror.NewArgumentError(op, arg, format, args...))
}

func checkInput(op string, in *Node) {
	if in == nil {
		argPanic(op, "source", "must not be nil")
	}
}

func checkFunc(op, arg string, isNil bool) {
	if isNil {
		argPanic(op, arg, "must not be nil")
	}
}

// NewStart creates a node reading from src, which must be a
// partition.RandomAccess or a partition.ForwardOnly.
func NewStart(src interface{}, kind partition.Kind) *Node {
	switch src.(type) {
	case partition.RandomAccess, partition.ForwardOnly:
	case nil:
		argPanic("From", "source", "must not be nil")
	default:
		argPanic("From", "source", "unsupported source type %T", src)
	}
	return newNode(Start, StartSpec{Source: src, Partitioning: kind})
}

// NewMap creates a Map node.
func NewMap(in *Node, fn func(any) any) *Node {
	checkInput("Map", in)
	checkFunc("Map", "selector", fn == nil)
	return newNode(Map, MapSpec{Fn: fn}, in)
}

// NewMapIndexed creates a Map node whose function also receives the position
// of the element. It turns the order guard on.
func NewMapIndexed(in *Node, fn func(any, int64) any) *Node {
	checkInput("MapIndexed", in)
	checkFunc("MapIndexed", "selector", fn == nil)
	return newNode(Map, MapSpec{Indexed: fn}, in)
}

// NewFilter creates a Filter node.
func NewFilter(in *Node, pred func(any) bool) *Node {
	checkInput("Filter", in)
	checkFunc("Filter", "predicate", pred == nil)
	return newNode(Filter, FilterSpec{Pred: pred}, in)
}

// NewFilterIndexed creates a Filter node whose predicate also receives the
// position of the element. It turns the order guard on.
func NewFilterIndexed(in *Node, pred func(any, int64) bool) *Node {
	checkInput("FilterIndexed", in)
	checkFunc("FilterIndexed", "predicate", pred == nil)
	return newNode(Filter, FilterSpec{Indexed: pred}, in)
}

// NewFlatMap creates a FlatMap node.
func NewFlatMap(in *Node, fn func(any) iter.Seq[any]) *Node {
	checkInput("FlatMap", in)
	checkFunc("FlatMap", "selector", fn == nil)
	return newNode(FlatMap, FlatMapSpec{Fn: fn}, in)
}

// NewGroupBy creates a GroupBy node.
func NewGroupBy(in *Node, spec GroupBySpec) *Node {
	checkInput("GroupBy", in)
	checkFunc("GroupBy", "keySelector", spec.Key == nil)
	checkFunc("GroupBy", "resultSelector", spec.Result == nil)
	checkEquality("GroupBy", spec.Eq)
	return newNode(GroupBy, spec, in)
}

// NewJoin creates a Join node.
func NewJoin(outer, inner *Node, spec JoinSpec) *Node {
	checkInput("Join", outer)
	checkInput("Join", inner)
	checkFunc("Join", "outerKeySelector", spec.OuterKey == nil)
	checkFunc("Join", "innerKeySelector", spec.InnerKey == nil)
	checkFunc("Join", "resultSelector", spec.Result == nil)
	checkEquality("Join", spec.Eq)
	return newNode(Join, spec, outer, inner)
}

// NewGroupJoin creates a GroupJoin node.
func NewGroupJoin(outer, inner *Node, spec JoinSpec) *Node {
	checkInput("GroupJoin", outer)
	checkInput("GroupJoin", inner)
	checkFunc("GroupJoin", "outerKeySelector", spec.OuterKey == nil)
	checkFunc("GroupJoin", "innerKeySelector", spec.InnerKey == nil)
	checkFunc("GroupJoin", "resultSelector", spec.GroupResult == nil)
	checkEquality("GroupJoin", spec.Eq)
	return newNode(GroupJoin, spec, outer, inner)
}

func checkEquality(op string, eq *Equality) {
	if eq != nil && (eq.Equal == nil || eq.Hash == nil) {
		argPanic(op, "comparer", "must define both Equal and Hash")
	}
}

// NewOrderBy creates an OrderBy node. ThenBy is expressed as a new OrderBy
// node over the same input with a refined chain.
func NewOrderBy(in *Node, chain *sorter.Chain) *Node {
	checkInput("OrderBy", in)
	if chain == nil || chain.Len() == 0 {
		argPanic("OrderBy", "keySelector", "must not be nil")
	}
	return newNode(OrderBy, OrderBySpec{Chain: chain}, in)
}

// NewTake creates a Head node keeping the first n elements.
func NewTake(in *Node, n int64) *Node {
	checkInput("Take", in)
	return newNode(Head, LimitSpec{Count: max(n, 0)}, in)
}

// NewTakeWhile creates a Head node keeping elements up to the first one
// failing pred.
func NewTakeWhile(in *Node, pred func(any) bool) *Node {
	checkInput("TakeWhile", in)
	checkFunc("TakeWhile", "predicate", pred == nil)
	return newNode(Head, LimitSpec{While: pred}, in)
}

// NewTakeWhileIndexed is NewTakeWhile with an index-aware predicate.
func NewTakeWhileIndexed(in *Node, pred func(any, int64) bool) *Node {
	checkInput("TakeWhileIndexed", in)
	checkFunc("TakeWhileIndexed", "predicate", pred == nil)
	return newNode(Head, LimitSpec{WhileIndexed: pred}, in)
}

// NewSkip creates a Tail node dropping the first n elements.
func NewSkip(in *Node, n int64) *Node {
	checkInput("Skip", in)
	return newNode(Tail, LimitSpec{Count: max(n, 0)}, in)
}

// NewSkipWhile creates a Tail node dropping elements up to the first one
// failing pred.
func NewSkipWhile(in *Node, pred func(any) bool) *Node {
	checkInput("SkipWhile", in)
	checkFunc("SkipWhile", "predicate", pred == nil)
	return newNode(Tail, LimitSpec{While: pred}, in)
}

// NewSkipWhileIndexed is NewSkipWhile with an index-aware predicate.
func NewSkipWhileIndexed(in *Node, pred func(any, int64) bool) *Node {
	checkInput("SkipWhileIndexed", in)
	checkFunc("SkipWhileIndexed", "predicate", pred == nil)
	return newNode(Tail, LimitSpec{WhileIndexed: pred}, in)
}

// NewConcat creates a Concat node.
func NewConcat(first, second *Node) *Node {
	checkInput("Concat", first)
	checkInput("Concat", second)
	return newNode(Concat, nil, first, second)
}

// NewZip creates a Zip node.
func NewZip(first, second *Node, fn func(a, b any) any) *Node {
	checkInput("Zip", first)
	checkInput("Zip", second)
	checkFunc("Zip", "resultSelector", fn == nil)
	return newNode(Zip, ZipSpec{Fn: fn}, first, second)
}

// NewDistinct creates a SetOp node removing duplicates.
func NewDistinct(in *Node, eq *Equality) *Node {
	checkInput("Distinct", in)
	checkEquality("Distinct", eq)
	return newNode(SetOp, SetOpSpec{Op: Distinct, Eq: eq}, in)
}

// NewSetOp creates a binary SetOp node.
func NewSetOp(op SetOpKind, first, second *Node, eq *Equality) *Node {
	name := op.String()
	if op == Distinct {
		argPanic(name, "op", "distinct takes a single input")
	}
	checkInput(name, first)
	checkInput(name, second)
	checkEquality(name, eq)
	return newNode(SetOp, SetOpSpec{Op: op, Eq: eq}, first, second)
}

// NewReverse creates a Reverse node.
func NewReverse(in *Node) *Node {
	checkInput("Reverse", in)
	return newNode(Reverse, nil, in)
}

// NewCast creates a Cast node.
func NewCast(in *Node, spec CastSpec) *Node {
	op := "OfType"
	if spec.Strict {
		op = "Cast"
	}
	checkInput(op, in)
	checkFunc(op, "convert", spec.Convert == nil)
	return newNode(Cast, spec, in)
}

// NewDefaultIfEmpty creates a DefaultIfEmpty node.
func NewDefaultIfEmpty(in *Node, v any) *Node {
	checkInput("DefaultIfEmpty", in)
	return newNode(DefaultIfEmpty, DefaultIfEmptySpec{Value: v}, in)
}

// NewAsOrdered creates an AsOrdered marker.
func NewAsOrdered(in *Node) *Node {
	checkInput("AsOrdered", in)
	return newNode(AsOrdered, nil, in)
}

// NewAsUnordered creates an AsUnordered marker.
func NewAsUnordered(in *Node) *Node {
	checkInput("AsUnordered", in)
	return newNode(AsUnordered, nil, in)
}

// NewExecutionMode creates an ExecutionModeMarker.
func NewExecutionMode(in *Node, mode ExecutionMode) *Node {
	checkInput("WithExecutionMode", in)
	if mode > ExecutionForceParallelism {
		argPanic("WithExecutionMode", "mode", "unknown execution mode %d", mode)
	}
	return newNode(ExecutionModeMarker, ExecutionModeSpec{Mode: mode}, in)
}

// NewMergeOptions creates a MergeOptionsMarker.
func NewMergeOptions(in *Node, b merge.Buffering) *Node {
	checkInput("WithMergeOptions", in)
	if b < merge.Default || b > merge.FullyBuffered {
		argPanic("WithMergeOptions", "options", "unknown merge options %d", b)
	}
	return newNode(MergeOptionsMarker, MergeOptionsSpec{Buffering: b}, in)
}

// NewDegreeOfParallelism creates a DegreeOfParallelism marker. n must be
// within [MinDegreeOfParallelism, MaxDegreeOfParallelism].
func NewDegreeOfParallelism(in *Node, n int) *Node {
	checkInput("WithDegreeOfParallelism", in)
	if n < MinDegreeOfParallelism || n > MaxDegreeOfParallelism {
		argPanic("WithDegreeOfParallelism", "degreeOfParallelism",
			"%d is outside of [%d, %d]", n, MinDegreeOfParallelism, MaxDegreeOfParallelism)
	}
	return newNode(DegreeOfParallelism, DegreeOfParallelismSpec{N: n}, in)
}

// NewCancellation creates a CancellationSignal marker.
func NewCancellation(in *Node, signal context.Context) *Node {
	checkInput("WithCancellation", in)
	if signal == nil {
		argPanic("WithCancellation", "signal", "must not be nil")
	}
	return newNode(CancellationSignal, CancellationSpec{Signal: signal}, in)
}
