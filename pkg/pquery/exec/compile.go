// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pquery/pkg/pquery/execerror"
	"github.com/cockroachdb/pquery/pkg/pquery/opgraph"
	"github.com/cockroachdb/pquery/pkg/pquery/partition"
)

// stream is a compiled node: one lazy sequence per partition.
type stream struct {
	parts []partition.Partition
	// dense is whether the indices produced by all partitions together are
	// exactly 0..n-1. Index-aware operators require dense input.
	dense   bool
	closeFn func()
}

func (s *stream) close() {
	if s.closeFn != nil {
		s.closeFn()
		s.closeFn = nil
	}
}

// pipe fuses an operator into every partition of s.
func (s *stream) pipe(fn func(p partition.Partition) partition.Partition, dense bool) *stream {
	parts := make([]partition.Partition, len(s.parts))
	for i, p := range s.parts {
		parts[i] = fn(p)
	}
	return &stream{parts: parts, dense: dense, closeFn: s.closeFn}
}

type compileFunc func(e *Executor, n *opgraph.Node) (*stream, error)

// compilers is the dispatch table of compile, indexed by node kind.
var compilers [opgraph.NumKinds]compileFunc

func init() {
	compilers = [opgraph.NumKinds]compileFunc{
		opgraph.Start:               compileStart,
		opgraph.Map:                 compileMap,
		opgraph.Filter:              compileFilter,
		opgraph.FlatMap:             compileFlatMap,
		opgraph.GroupBy:             compileGroupBy,
		opgraph.Join:                compileJoin,
		opgraph.GroupJoin:           compileJoin,
		opgraph.OrderBy:             compileOrderBy,
		opgraph.Head:                compileLimit,
		opgraph.Tail:                compileLimit,
		opgraph.Concat:              compileConcat,
		opgraph.Zip:                 compileZip,
		opgraph.SetOp:               compileSetOp,
		opgraph.Reverse:             compileReverse,
		opgraph.Cast:                compileCast,
		opgraph.DefaultIfEmpty:      compileDefaultIfEmpty,
		opgraph.AsOrdered:           compileMarker,
		opgraph.AsUnordered:         compileMarker,
		opgraph.ExecutionModeMarker: compileMarker,
		opgraph.MergeOptionsMarker:  compileMarker,
		opgraph.DegreeOfParallelism: compileMarker,
		opgraph.CancellationSignal:  compileMarker,
	}
}

// compile turns the graph rooted at n into a stream. Barrier operators run
// during compilation.
func (e *Executor) compile(n *opgraph.Node) (*stream, error) {
	fn := compilers[n.Kind()]
	if fn == nil {
		return nil, errors.AssertionFailedf("no compiler for %s", n.Kind())
	}
	return fn(e, n)
}

// fromSource range-partitions materialized elements for the next stage.
func (e *Executor) fromSource(src partition.RandomAccess) *stream {
	set := partition.NewRange(src, e.opts.PartitionCount)
	parts := make([]partition.Partition, len(set.Partitions))
	for i, p := range set.Partitions {
		parts[i] = e.guard(p)
	}
	return &stream{parts: parts, dense: true}
}

// densify returns s unchanged if it is dense, and otherwise materializes it
// and renumbers its elements. in is the node that s was compiled from.
func (e *Executor) densify(in *opgraph.Node, s *stream) (*stream, error) {
	if s.dense {
		return s, nil
	}
	return e.barrier(in, func() (*stream, error) {
		vals, err := e.materialize(s, in.Ordered())
		if err != nil {
			return nil, err
		}
		return e.fromSource(partition.Slice[any](vals)), nil
	})
}

func compileStart(e *Executor, n *opgraph.Node) (*stream, error) {
	spec := n.Spec().(opgraph.StartSpec)
	set, err := partition.New(spec.Source, e.opts.PartitionCount, spec.Partitioning)
	if err != nil {
		return nil, err
	}
	parts := make([]partition.Partition, len(set.Partitions))
	for i, p := range set.Partitions {
		parts[i] = e.guard(p)
	}
	return &stream{parts: parts, dense: true, closeFn: set.Close}, nil
}

func compileMarker(e *Executor, n *opgraph.Node) (*stream, error) {
	return e.compile(n.Input(0))
}

func compileMap(e *Executor, n *opgraph.Node) (*stream, error) {
	spec := n.Spec().(opgraph.MapSpec)
	in, err := e.compile(n.Input(0))
	if err != nil {
		return nil, err
	}
	if spec.Indexed != nil {
		if in, err = e.densify(n.Input(0), in); err != nil {
			return nil, err
		}
	}
	return in.pipe(func(p partition.Partition) partition.Partition {
		return func(yield func(int64, any) bool) {
			for idx, v := range p {
				var out any
				if spec.Fn != nil {
					out = spec.Fn(v)
				} else {
					out = spec.Indexed(v, idx)
				}
				if !yield(idx, out) {
					return
				}
			}
		}
	}, in.dense), nil
}

func compileFilter(e *Executor, n *opgraph.Node) (*stream, error) {
	spec := n.Spec().(opgraph.FilterSpec)
	in, err := e.compile(n.Input(0))
	if err != nil {
		return nil, err
	}
	if spec.Indexed != nil {
		if in, err = e.densify(n.Input(0), in); err != nil {
			return nil, err
		}
	}
	return in.pipe(func(p partition.Partition) partition.Partition {
		return func(yield func(int64, any) bool) {
			for idx, v := range p {
				var keep bool
				if spec.Pred != nil {
					keep = spec.Pred(v)
				} else {
					keep = spec.Indexed(v, idx)
				}
				if keep && !yield(idx, v) {
					return
				}
			}
		}
	}, false), nil
}

// compileFlatMap yields every produced element with the index of the element
// it was produced from. Indices are no longer unique, but stay
// non-decreasing within a partition, so an ordered merge keeps produced
// elements together and in production order.
func compileFlatMap(e *Executor, n *opgraph.Node) (*stream, error) {
	spec := n.Spec().(opgraph.FlatMapSpec)
	in, err := e.compile(n.Input(0))
	if err != nil {
		return nil, err
	}
	return in.pipe(func(p partition.Partition) partition.Partition {
		return func(yield func(int64, any) bool) {
			for idx, v := range p {
				inner := spec.Fn(v)
				if inner == nil {
					continue
				}
				for x := range inner {
					if !yield(idx, x) {
						return
					}
				}
			}
		}
	}, false), nil
}

func compileCast(e *Executor, n *opgraph.Node) (*stream, error) {
	spec := n.Spec().(opgraph.CastSpec)
	in, err := e.compile(n.Input(0))
	if err != nil {
		return nil, err
	}
	return in.pipe(func(p partition.Partition) partition.Partition {
		return func(yield func(int64, any) bool) {
			for idx, v := range p {
				out, ok := spec.Convert(v)
				if !ok {
					if spec.Strict {
						panic(errors.Mark(
							errors.Newf("cannot cast %T to %s", v, spec.Target), execerror.ErrInvalidCast))
					}
					continue
				}
				if !yield(idx, out) {
					return
				}
			}
		}
	}, in.dense && spec.Strict), nil
}

// compileLimit compiles Take, Skip and their while variants. Under the order
// guard, counted limits compare the dense index of every element against the
// count, which needs no coordination between workers. Without the guard any
// count elements qualify, and workers share an atomic counter.
func compileLimit(e *Executor, n *opgraph.Node) (*stream, error) {
	spec := n.Spec().(opgraph.LimitSpec)
	head := n.Kind() == opgraph.Head
	in, err := e.compile(n.Input(0))
	if err != nil {
		return nil, err
	}
	if spec.IsWhile() || n.Ordered() {
		if in, err = e.densify(n.Input(0), in); err != nil {
			return nil, err
		}
	}
	if spec.IsWhile() {
		return e.barrier(n, func() (*stream, error) {
			return e.limitWhile(in, spec, head)
		})
	}
	count := spec.Count
	if n.Ordered() {
		return in.pipe(func(p partition.Partition) partition.Partition {
			return func(yield func(int64, any) bool) {
				for idx, v := range p {
					if head {
						if idx >= count {
							return
						}
						if !yield(idx, v) {
							return
						}
					} else if idx >= count {
						if !yield(idx-count, v) {
							return
						}
					}
				}
			}
		}, true), nil
	}
	var seen atomic.Int64
	return in.pipe(func(p partition.Partition) partition.Partition {
		return func(yield func(int64, any) bool) {
			if head && seen.Load() >= count {
				return
			}
			for idx, v := range p {
				c := seen.Add(1)
				if head {
					if c > count {
						return
					}
					if !yield(idx, v) {
						return
					}
				} else if c > count {
					if !yield(idx, v) {
						return
					}
				}
			}
		}
	}, false), nil
}
