// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package pquery provides deferred, partitioned parallel queries over
// in-memory sequences.
//
// A query is composed lazily: every combinator returns a new immutable
// Query wrapping its inputs, and nothing runs until a terminal operation
// such as ForAll, ToSlice or Aggregate is called. Terminal operations split
// the source into partitions, drain every partition on its own goroutine and
// combine the results. Output order is unspecified unless the query is
// ordered, through AsOrdered or an order-sensitive operator such as OrderBy,
// Zip or Reverse.
//
// Combinators that change the element type are package-level functions,
// because methods cannot introduce type parameters:
//
//	q := pquery.FromSlice(orders).Filter(isOpen)
//	totals := pquery.Map(q, func(o Order) float64 { return o.Total })
//	sum, err := pquery.Sum(ctx, totals)
package pquery

import (
	"context"
	"iter"

	"github.com/cockroachdb/pquery/pkg/pquery/execerror"
	"github.com/cockroachdb/pquery/pkg/pquery/merge"
	"github.com/cockroachdb/pquery/pkg/pquery/opgraph"
	"github.com/cockroachdb/pquery/pkg/pquery/partition"
)

// Errors returned by terminal operations. Use errors.Is to test for them.
var (
	ErrNoElements         = execerror.ErrNoElements
	ErrMoreThanOneElement = execerror.ErrMoreThanOneElement
	ErrIndexOutOfRange    = execerror.ErrIndexOutOfRange
	ErrInvalidArgument    = execerror.ErrInvalidArgument
	ErrDuplicateKey       = execerror.ErrDuplicateKey
	ErrInvalidCast        = execerror.ErrInvalidCast
)

// Partitioning selects how a source is split into partitions.
type Partitioning = partition.Kind

const (
	// AutoPartitioning uses range partitioning for indexable sources and
	// chunk partitioning otherwise.
	AutoPartitioning = partition.Auto
	// RangePartitioning splits indexable sources into contiguous ranges.
	RangePartitioning = partition.Range
	// ChunkPartitioning lets workers claim chunks of the source on demand.
	ChunkPartitioning = partition.Chunk
	// StripPartitioning deals elements of indexable sources round-robin.
	StripPartitioning = partition.Strip
)

// MergeOptions controls how results are buffered before they reach the
// consumer of Iter.
type MergeOptions = merge.Buffering

const (
	DefaultMerge  = merge.Default
	NotBuffered   = merge.NotBuffered
	AutoBuffered  = merge.AutoBuffered
	FullyBuffered = merge.FullyBuffered
)

// ExecutionMode controls whether small queries may run sequentially.
type ExecutionMode = opgraph.ExecutionMode

const (
	ExecutionDefault          = opgraph.ExecutionDefault
	ExecutionForceParallelism = opgraph.ExecutionForceParallelism
)

// MaxDegreeOfParallelism is the largest degree of parallelism accepted by
// WithDegreeOfParallelism.
const MaxDegreeOfParallelism = opgraph.MaxDegreeOfParallelism

// Query is a deferred parallel query producing elements of type T. The zero
// value is not usable; queries are created by the source functions.
type Query[T any] struct {
	node *opgraph.Node
}

func wrap[T any](n *opgraph.Node) Query[T] { return Query[T]{node: n} }

// Explain returns the operator graph of the query, one node per line.
func (q Query[T]) Explain() string { return opgraph.Format(q.node) }

// Indexable is a source with a known length and constant-time access by
// position. Indexable sources are split by range.
type Indexable[T any] interface {
	Len() int
	At(i int) T
}

type indexable[T any] struct {
	src Indexable[T]
}

func (s indexable[T]) Len() int { return s.src.Len() }

func (s indexable[T]) At(i int) any { return s.src.At(i) }

// SourceOption configures a source.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	partitioning Partitioning
}

// WithPartitioning forces the partitioning of a source. Forward-only
// sources can only be split into chunks; other choices fall back to
// ChunkPartitioning.
func WithPartitioning(kind Partitioning) SourceOption {
	return func(c *sourceConfig) { c.partitioning = kind }
}

func newSource[T any](src interface{}, opts []SourceOption) Query[T] {
	var cfg sourceConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return wrap[T](opgraph.NewStart(src, cfg.partitioning))
}

// FromSlice returns a query over the elements of s. The slice must not be
// modified until the query's terminal operations have returned.
func FromSlice[T any](s []T, opts ...SourceOption) Query[T] {
	return newSource[T](partition.Slice[T](s), opts)
}

// FromSeq returns a query over a forward-only sequence. Workers pull from
// seq in chunks under a lock, so seq is never called concurrently.
func FromSeq[T any](seq iter.Seq[T], opts ...SourceOption) Query[T] {
	if seq == nil {
		panic(execerror.NewArgumentError("FromSeq", "source", "must not be nil"))
	}
	return newSource[T](partition.Seq[T](seq), opts)
}

// FromIndexable returns a query over an indexable source.
func FromIndexable[T any](src Indexable[T], opts ...SourceOption) Query[T] {
	if src == nil {
		panic(execerror.NewArgumentError("FromIndexable", "source", "must not be nil"))
	}
	return newSource[T](indexable[T]{src: src}, opts)
}

type intRange struct {
	start, count int
}

func (r intRange) Len() int { return r.count }

func (r intRange) At(i int) any { return r.start + i }

// Range returns a query over the count integers starting at start.
func Range(start, count int) Query[int] {
	if count < 0 {
		panic(execerror.NewArgumentError("Range", "count", "%d is negative", count))
	}
	return newSource[int](intRange{start: start, count: count}, nil)
}

type repeated[T any] struct {
	v     T
	count int
}

func (r repeated[T]) Len() int { return r.count }

func (r repeated[T]) At(int) any { return r.v }

// Repeat returns a query producing v count times.
func Repeat[T any](v T, count int) Query[T] {
	if count < 0 {
		panic(execerror.NewArgumentError("Repeat", "count", "%d is negative", count))
	}
	return newSource[T](repeated[T]{v: v, count: count}, nil)
}

// Empty returns a query producing no elements.
func Empty[T any]() Query[T] {
	return newSource[T](partition.Slice[T](nil), nil)
}

// as converts an element flowing through the engine back to its static
// type. Elements of interface types may be nil.
func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// AsOrdered makes the query preserve the order of its source: downstream
// operators and terminal operations observe elements in source order.
func (q Query[T]) AsOrdered() Query[T] { return wrap[T](opgraph.NewAsOrdered(q.node)) }

// AsUnordered lifts the ordering requirement for downstream operators.
func (q Query[T]) AsUnordered() Query[T] { return wrap[T](opgraph.NewAsUnordered(q.node)) }

// WithDegreeOfParallelism sets the number of partitions, and of concurrent
// workers, of the query. n must be in [1, MaxDegreeOfParallelism]. The
// setting closest to the terminal operation wins.
func (q Query[T]) WithDegreeOfParallelism(n int) Query[T] {
	return wrap[T](opgraph.NewDegreeOfParallelism(q.node, n))
}

// WithCancellation links a cancellation signal into the query, in addition
// to the context passed to the terminal operation. The query fails with a
// *QueryCanceledError naming ctx once it is done.
func (q Query[T]) WithCancellation(ctx context.Context) Query[T] {
	return wrap[T](opgraph.NewCancellation(q.node, ctx))
}

// WithExecutionMode sets the execution mode.
func (q Query[T]) WithExecutionMode(mode ExecutionMode) Query[T] {
	return wrap[T](opgraph.NewExecutionMode(q.node, mode))
}

// WithMergeOptions sets how results are buffered for Iter.
func (q Query[T]) WithMergeOptions(opts MergeOptions) Query[T] {
	return wrap[T](opgraph.NewMergeOptions(q.node, opts))
}

// QueryCanceledError is returned when a user cancellation signal stops a
// query.
type QueryCanceledError = execerror.QueryCanceledError

// Faults returns every worker fault reported by a failed query, in the
// order they were raised.
func Faults(err error) []error { return execerror.Faults(err) }
