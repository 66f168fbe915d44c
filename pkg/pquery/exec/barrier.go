// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"math"
	"sync/atomic"

	"github.com/cockroachdb/pquery/pkg/pquery/merge"
	"github.com/cockroachdb/pquery/pkg/pquery/opgraph"
	"github.com/cockroachdb/pquery/pkg/pquery/partition"
	"github.com/cockroachdb/pquery/pkg/pquery/sorter"
)

// storeMin lowers v to x if x is smaller.
func storeMin(v *atomic.Int64, x int64) {
	for {
		old := v.Load()
		if x >= old || v.CompareAndSwap(old, x) {
			return
		}
	}
}

// limitWhile computes TakeWhile and SkipWhile over a dense stream. Every
// worker evaluates the predicate in index order until it fails, and the
// smallest failing index over all workers splits the input. Workers of
// TakeWhile stop as soon as they are past the smallest failing index found
// so far.
func (e *Executor) limitWhile(in *stream, spec opgraph.LimitSpec, head bool) (*stream, error) {
	pred := func(v any, idx int64) bool {
		if spec.While != nil {
			return spec.While(v)
		}
		return spec.WhileIndexed(v, idx)
	}
	var firstFail atomic.Int64
	firstFail.Store(math.MaxInt64)
	buffers := make([][]merge.Item, len(in.parts))
	failed := make([]bool, len(in.parts))
	err := e.drain(in, func(w int, idx int64, v any) Verdict {
		if head {
			if idx > firstFail.Load() {
				return StopPartition
			}
			if !pred(v, idx) {
				storeMin(&firstFail, idx)
				return StopPartition
			}
		} else if !failed[w] && idx < firstFail.Load() && !pred(v, idx) {
			failed[w] = true
			storeMin(&firstFail, idx)
		}
		buffers[w] = append(buffers[w], merge.Item{Idx: idx, Val: v})
		return Continue
	})
	if err != nil {
		return nil, err
	}
	split := firstFail.Load()
	var vals []any
	for it := range merge.Sorted(buffers) {
		if (it.Idx < split) == head {
			vals = append(vals, it.Val)
		}
	}
	return e.fromSource(partition.Slice[any](vals)), nil
}

func compileOrderBy(e *Executor, n *opgraph.Node) (*stream, error) {
	chain := n.Spec().(opgraph.OrderBySpec).Chain
	in, err := e.compile(n.Input(0))
	if err != nil {
		return nil, err
	}
	return e.barrier(n, func() (*stream, error) {
		vals, err := e.materialize(in, n.Input(0).Ordered())
		if err != nil {
			return nil, err
		}
		var sorted sorter.Sorted
		if err := e.runInline(func() { sorted = sorter.SortView(vals, chain) }); err != nil {
			return nil, err
		}
		return e.fromSource(sorted), nil
	})
}

type keyed struct {
	key any
	val any
}

type group struct {
	key   any
	elems []any
}

// groups is a RandomAccess over grouping results. The result selector runs
// lazily, inside the workers of the next stage.
type groups struct {
	groups []*group
	result func(key any, elems []any) any
}

func (g groups) Len() int { return len(g.groups) }

func (g groups) At(i int) any { return g.result(g.groups[i].key, g.groups[i].elems) }

// compileGroupBy computes keys and projected elements in the workers, then
// groups the merged output. Groups appear in the order of their first
// element.
func compileGroupBy(e *Executor, n *opgraph.Node) (*stream, error) {
	spec := n.Spec().(opgraph.GroupBySpec)
	in, err := e.compile(n.Input(0))
	if err != nil {
		return nil, err
	}
	return e.barrier(n, func() (*stream, error) {
		keyedIn := in.pipe(func(p partition.Partition) partition.Partition {
			return func(yield func(int64, any) bool) {
				for idx, v := range p {
					elem := v
					if spec.Elem != nil {
						elem = spec.Elem(v)
					}
					if !yield(idx, keyed{key: spec.Key(v), val: elem}) {
						return
					}
				}
			}
		}, in.dense)
		vals, err := e.materialize(keyedIn, n.Input(0).Ordered())
		if err != nil {
			return nil, err
		}
		var res groups
		res.result = spec.Result
		err = e.runInline(func() {
			table := newHashTable[*group](spec.Eq)
			for _, v := range vals {
				kv := v.(keyed)
				table.update(kv.key, func(g *group, ok bool) *group {
					if !ok {
						g = &group{key: kv.key}
						res.groups = append(res.groups, g)
					}
					g.elems = append(g.elems, kv.val)
					return g
				})
			}
		})
		if err != nil {
			return nil, err
		}
		return e.fromSource(res), nil
	})
}

// compileJoin builds a lookup of the inner input behind a barrier, then
// probes it inline from the partitions of the outer input. Matches keep the
// order of the outer input, then of the inner input.
func compileJoin(e *Executor, n *opgraph.Node) (*stream, error) {
	spec := n.Spec().(opgraph.JoinSpec)
	innerNode := n.Input(1)
	inner, err := e.compile(innerNode)
	if err != nil {
		return nil, err
	}
	var lookup *hashTable[[]any]
	if _, err := e.barrier(n, func() (*stream, error) {
		keyedInner := inner.pipe(func(p partition.Partition) partition.Partition {
			return func(yield func(int64, any) bool) {
				for idx, v := range p {
					if !yield(idx, keyed{key: spec.InnerKey(v), val: v}) {
						return
					}
				}
			}
		}, inner.dense)
		vals, err := e.materialize(keyedInner, innerNode.Ordered())
		if err != nil {
			return nil, err
		}
		return nil, e.runInline(func() {
			lookup = newHashTable[[]any](spec.Eq)
			for _, v := range vals {
				kv := v.(keyed)
				lookup.update(kv.key, func(old []any, _ bool) []any {
					return append(old, kv.val)
				})
			}
		})
	}); err != nil {
		return nil, err
	}

	outer, err := e.compile(n.Input(0))
	if err != nil {
		return nil, err
	}
	if n.Kind() == opgraph.GroupJoin {
		return outer.pipe(func(p partition.Partition) partition.Partition {
			return func(yield func(int64, any) bool) {
				for idx, v := range p {
					matches, _ := lookup.get(spec.OuterKey(v))
					if matches == nil {
						matches = []any{}
					}
					if !yield(idx, spec.GroupResult(v, matches)) {
						return
					}
				}
			}
		}, outer.dense), nil
	}
	return outer.pipe(func(p partition.Partition) partition.Partition {
		return func(yield func(int64, any) bool) {
			for idx, v := range p {
				matches, _ := lookup.get(spec.OuterKey(v))
				for _, m := range matches {
					if !yield(idx, spec.Result(v, m)) {
						return
					}
				}
			}
		}
	}, false), nil
}

// materializeInput compiles and materializes the i-th input of n.
func (e *Executor) materializeInput(n *opgraph.Node, i int, ordered bool) ([]any, error) {
	s, err := e.compile(n.Input(i))
	if err != nil {
		return nil, err
	}
	return e.materialize(s, ordered)
}

func compileConcat(e *Executor, n *opgraph.Node) (*stream, error) {
	return e.barrier(n, func() (*stream, error) {
		first, err := e.materializeInput(n, 0, n.Input(0).Ordered())
		if err != nil {
			return nil, err
		}
		second, err := e.materializeInput(n, 1, n.Input(1).Ordered())
		if err != nil {
			return nil, err
		}
		return e.fromSource(partition.Slice[any](append(first, second...))), nil
	})
}

// zipped is a RandomAccess pairing up two materialized inputs. The result
// selector runs lazily, inside the workers of the next stage.
type zipped struct {
	first, second []any
	fn            func(a, b any) any
}

func (z zipped) Len() int { return min(len(z.first), len(z.second)) }

func (z zipped) At(i int) any { return z.fn(z.first[i], z.second[i]) }

func compileZip(e *Executor, n *opgraph.Node) (*stream, error) {
	fn := n.Spec().(opgraph.ZipSpec).Fn
	return e.barrier(n, func() (*stream, error) {
		first, err := e.materializeInput(n, 0, true)
		if err != nil {
			return nil, err
		}
		second, err := e.materializeInput(n, 1, true)
		if err != nil {
			return nil, err
		}
		return e.fromSource(zipped{first: first, second: second, fn: fn}), nil
	})
}

// reversed is a RandomAccess over a materialized input, back to front.
type reversed []any

func (r reversed) Len() int { return len(r) }

func (r reversed) At(i int) any { return r[len(r)-1-i] }

func compileReverse(e *Executor, n *opgraph.Node) (*stream, error) {
	return e.barrier(n, func() (*stream, error) {
		vals, err := e.materializeInput(n, 0, true)
		if err != nil {
			return nil, err
		}
		return e.fromSource(reversed(vals)), nil
	})
}

func compileDefaultIfEmpty(e *Executor, n *opgraph.Node) (*stream, error) {
	def := n.Spec().(opgraph.DefaultIfEmptySpec).Value
	return e.barrier(n, func() (*stream, error) {
		vals, err := e.materializeInput(n, 0, n.Input(0).Ordered())
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			vals = []any{def}
		}
		return e.fromSource(partition.Slice[any](vals)), nil
	})
}

// distinctInput materializes the i-th input of n after removing duplicates
// within every worker, which shrinks what is merged. The result may still
// contain duplicates found by different workers.
func (e *Executor) distinctInput(n *opgraph.Node, i int, eq *opgraph.Equality) ([]any, error) {
	s, err := e.compile(n.Input(i))
	if err != nil {
		return nil, err
	}
	tables := make([]*hashTable[struct{}], len(s.parts))
	for w := range tables {
		tables[w] = newHashTable[struct{}](eq)
	}
	buffers := make([][]merge.Item, len(s.parts))
	err = e.drain(s, func(w int, idx int64, v any) Verdict {
		if tables[w].put(v, struct{}{}) {
			buffers[w] = append(buffers[w], merge.Item{Idx: idx, Val: v})
		}
		return Continue
	})
	if err != nil {
		return nil, err
	}
	return mergeBuffers(buffers, n.Input(i).Ordered()), nil
}

// compileSetOp computes set operations. The result holds the first
// occurrence of every qualifying element, in the order of the first input
// (then of the second input for Union).
func compileSetOp(e *Executor, n *opgraph.Node) (*stream, error) {
	spec := n.Spec().(opgraph.SetOpSpec)
	return e.barrier(n, func() (*stream, error) {
		first, err := e.distinctInput(n, 0, spec.Eq)
		if err != nil {
			return nil, err
		}
		var second []any
		if n.NumInputs() > 1 {
			if second, err = e.distinctInput(n, 1, spec.Eq); err != nil {
				return nil, err
			}
		}
		var res []any
		err = e.runInline(func() {
			emitted := newHashTable[struct{}](spec.Eq)
			switch spec.Op {
			case opgraph.Distinct, opgraph.Union:
				for _, v := range append(first, second...) {
					if emitted.put(v, struct{}{}) {
						res = append(res, v)
					}
				}
			case opgraph.Intersect, opgraph.Except:
				other := newHashTable[struct{}](spec.Eq)
				for _, v := range second {
					other.put(v, struct{}{})
				}
				want := spec.Op == opgraph.Intersect
				for _, v := range first {
					if other.contains(v) == want && emitted.put(v, struct{}{}) {
						res = append(res, v)
					}
				}
			}
		})
		if err != nil {
			return nil, err
		}
		return e.fromSource(partition.Slice[any](res)), nil
	})
}
