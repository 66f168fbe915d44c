// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package pquery

import (
	"context"
	"iter"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pquery/pkg/pquery/exec"
	"github.com/cockroachdb/pquery/pkg/pquery/execerror"
	"golang.org/x/sync/errgroup"
)

// ForAll calls fn for every element, concurrently from the query's workers,
// and returns once all of them are done. Errors are either the faults raised
// by fn or the query, or a *QueryCanceledError.
func (q Query[T]) ForAll(ctx context.Context, fn func(T)) error {
	if fn == nil {
		return execerror.NewArgumentError("ForAll", "action", "must not be nil")
	}
	return exec.RunBlocking(ctx, q.node, func(_ int, _ int64, v any) exec.Verdict {
		fn(as[T](v))
		return exec.Continue
	})
}

// Handle tracks a query started by Start.
type Handle struct {
	h *exec.JoinHandle
}

// Done returns a channel closed once the query finished.
func (h Handle) Done() <-chan struct{} { return h.h.Done() }

// Wait waits for the query to finish and returns its error.
func (h Handle) Wait() error { return h.h.Join() }

// Start is the non-blocking form of ForAll: it starts calling fn for every
// element in the background and returns immediately.
func (q Query[T]) Start(ctx context.Context, fn func(T)) (Handle, error) {
	if fn == nil {
		return Handle{}, execerror.NewArgumentError("Start", "action", "must not be nil")
	}
	return Handle{h: exec.RunAndCallback(ctx, q.node, func(_ int, _ int64, v any) exec.Verdict {
		fn(as[T](v))
		return exec.Continue
	})}, nil
}

func typed[T any](vals []any) []T {
	res := make([]T, len(vals))
	for i, v := range vals {
		res[i] = as[T](v)
	}
	return res
}

// ToSlice returns the elements of the query: in order if the query is
// ordered, in an unspecified order otherwise.
func (q Query[T]) ToSlice(ctx context.Context) ([]T, error) {
	vals, err := exec.Collect(ctx, q.node)
	if err != nil {
		return nil, err
	}
	return typed[T](vals), nil
}

// Iter returns the elements of the query as they are produced: in order if
// the query is ordered, in arrival order otherwise. If the query fails, the
// last pair carries the error. Breaking out of the loop stops the query.
func (q Query[T]) Iter(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v, err := range exec.Stream(ctx, q.node) {
			if !yield(as[T](v), err) {
				return
			}
		}
	}
}

// AsSequential returns the elements of the query as a plain sequence for
// sequential processing. The returned function reports the error that
// stopped the sequence, if any, once the sequence has been consumed.
func (q Query[T]) AsSequential(ctx context.Context) (iter.Seq[T], func() error) {
	var err error
	seq := func(yield func(T) bool) {
		for v, e := range q.Iter(ctx) {
			if e != nil {
				err = e
				return
			}
			if !yield(v) {
				return
			}
		}
	}
	return seq, func() error { return err }
}

// Count returns the number of elements.
func (q Query[T]) Count(ctx context.Context) (int, error) {
	n, err := q.LongCount(ctx)
	return int(n), err
}

// LongCount returns the number of elements as an int64.
func (q Query[T]) LongCount(ctx context.Context) (int64, error) {
	res, err := exec.RunAggregate(ctx, q.node, exec.AggregateSpec{
		Seed:       func() any { return int64(0) },
		Accumulate: func(acc, _ any) any { return acc.(int64) + 1 },
		Combine:    func(a, b any) any { return a.(int64) + b.(int64) },
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// Any returns whether any element satisfies pred, or whether there is any
// element at all if pred is nil. Workers stop as soon as one of them finds
// a match.
func (q Query[T]) Any(ctx context.Context, pred func(T) bool) (bool, error) {
	p := predicate(pred)
	if p == nil {
		p = func(any) bool { return true }
	}
	return exec.RunAny(ctx, q.node, p)
}

// All returns whether every element satisfies pred. Workers stop as soon as
// one of them finds a counterexample.
func (q Query[T]) All(ctx context.Context, pred func(T) bool) (bool, error) {
	if pred == nil {
		return false, execerror.NewArgumentError("All", "predicate", "must not be nil")
	}
	found, err := exec.RunAny(ctx, q.node, func(v any) bool { return !pred(as[T](v)) })
	return !found, err
}

// Contains returns whether the query produces v.
func Contains[T comparable](ctx context.Context, q Query[T], v T) (bool, error) {
	return q.Any(ctx, func(x T) bool { return x == v })
}

// ContainsWith is Contains with an explicit comparer.
func ContainsWith[T any](ctx context.Context, q Query[T], v T, eq EqualityComparer[T]) (bool, error) {
	if eq == nil {
		return false, execerror.NewArgumentError("Contains", "comparer", "must not be nil")
	}
	return q.Any(ctx, func(x T) bool { return eq.Equal(x, v) })
}

// First returns the first element of an ordered query, or any element of an
// unordered one. It fails with ErrNoElements if there is none.
func (q Query[T]) First(ctx context.Context) (T, error) {
	v, ok, err := q.first(ctx)
	if err == nil && !ok {
		err = ErrNoElements
	}
	return v, err
}

// FirstOrDefault is First returning the zero value if there is no element.
func (q Query[T]) FirstOrDefault(ctx context.Context) (T, error) {
	v, _, err := q.first(ctx)
	return v, err
}

func (q Query[T]) first(ctx context.Context) (T, bool, error) {
	v, ok, err := exec.RunFirst(ctx, q.node, nil)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	return as[T](v), true, nil
}

// Last returns the last element of the query. It fails with ErrNoElements
// if there is none.
func (q Query[T]) Last(ctx context.Context) (T, error) {
	return q.Reverse().First(ctx)
}

// LastOrDefault is Last returning the zero value if there is no element.
func (q Query[T]) LastOrDefault(ctx context.Context) (T, error) {
	return q.Reverse().FirstOrDefault(ctx)
}

// Single returns the only element of the query. It fails with
// ErrNoElements if there is none and with ErrMoreThanOneElement if there
// are several, however they are spread over partitions.
func (q Query[T]) Single(ctx context.Context) (T, error) {
	v, n, err := q.single(ctx)
	if err == nil && n == 0 {
		err = ErrNoElements
	}
	return v, err
}

// SingleOrDefault is Single returning the zero value if there is no
// element. It still fails if there are several.
func (q Query[T]) SingleOrDefault(ctx context.Context) (T, error) {
	v, _, err := q.single(ctx)
	return v, err
}

func (q Query[T]) single(ctx context.Context) (T, int, error) {
	var zero T
	v, n, err := exec.RunSingle(ctx, q.node, nil)
	switch {
	case err != nil:
		return zero, 0, err
	case n > 1:
		return zero, n, ErrMoreThanOneElement
	case n == 0:
		return zero, 0, nil
	}
	return as[T](v), 1, nil
}

// ElementAt returns the element at position i of the query, which becomes
// ordered. It fails with ErrIndexOutOfRange if there is no such element.
func (q Query[T]) ElementAt(ctx context.Context, i int) (T, error) {
	v, ok, err := q.elementAt(ctx, i)
	if err == nil && !ok {
		err = errors.Wrapf(ErrIndexOutOfRange, "element %d", i)
	}
	return v, err
}

// ElementAtOrDefault is ElementAt returning the zero value if there is no
// such element.
func (q Query[T]) ElementAtOrDefault(ctx context.Context, i int) (T, error) {
	v, _, err := q.elementAt(ctx, i)
	return v, err
}

func (q Query[T]) elementAt(ctx context.Context, i int) (T, bool, error) {
	if i < 0 {
		var zero T
		return zero, false, nil
	}
	return q.FilterIndexed(func(_ T, idx int) bool { return idx == i }).first(ctx)
}

// Reduce folds the elements with fn, using the first element of every
// worker as its seed and then fn again to combine the workers' results. fn
// must be associative and commutative. It fails with ErrNoElements if there
// is no element.
func (q Query[T]) Reduce(ctx context.Context, fn func(acc, v T) T) (T, error) {
	var zero T
	if fn == nil {
		return zero, execerror.NewArgumentError("Reduce", "func", "must not be nil")
	}
	erased := binary(fn)
	res, err := exec.RunAggregate(ctx, q.node, exec.AggregateSpec{Accumulate: erased, Combine: erased})
	if err != nil {
		return zero, err
	}
	return as[T](res), nil
}

// Fold folds the elements into seed with fn, sequentially and in the order
// of the query: there is no way to combine partial results computed by
// different workers. Upstream operators still run in parallel.
func Fold[T, A any](ctx context.Context, q Query[T], seed A, fn func(acc A, v T) A) (A, error) {
	if fn == nil {
		return seed, execerror.NewArgumentError("Fold", "func", "must not be nil")
	}
	acc := seed
	for v, err := range q.Iter(ctx) {
		if err != nil {
			return acc, err
		}
		acc = fn(acc, v)
	}
	return acc, nil
}

// Aggregate runs a three-phase aggregation. Every worker folds its
// partition into a private accumulator created by seed, then the
// accumulators are merged with combine, in worker order, once all workers
// are done.
func Aggregate[T, A any](
	ctx context.Context,
	q Query[T],
	seed func() A,
	accumulate func(acc A, v T) A,
	combine func(a, b A) A,
) (A, error) {
	var zero A
	switch {
	case seed == nil:
		return zero, execerror.NewArgumentError("Aggregate", "seedFactory", "must not be nil")
	case accumulate == nil:
		return zero, execerror.NewArgumentError("Aggregate", "accumulate", "must not be nil")
	case combine == nil:
		return zero, execerror.NewArgumentError("Aggregate", "combine", "must not be nil")
	}
	res, err := exec.RunAggregate(ctx, q.node, exec.AggregateSpec{
		Seed:       func() any { return seed() },
		Accumulate: binary(accumulate),
		Combine:    binary(combine),
	})
	if err != nil {
		return zero, err
	}
	return as[A](res), nil
}

// ToMap returns a map from key(v) to val(v) for every element v. It fails
// with ErrDuplicateKey if two elements have the same key.
func ToMap[T any, K comparable, V any](
	ctx context.Context, q Query[T], key func(T) K, val func(T) V,
) (map[K]V, error) {
	if key == nil || val == nil {
		return nil, execerror.NewArgumentError("ToMap", "selector", "must not be nil")
	}
	put := func(m map[K]V, k K, v V) map[K]V {
		if _, ok := m[k]; ok {
			panic(errors.Mark(errors.Newf("key %v appears more than once", k), ErrDuplicateKey))
		}
		m[k] = v
		return m
	}
	return Aggregate(ctx, q,
		func() map[K]V { return make(map[K]V) },
		func(m map[K]V, v T) map[K]V { return put(m, key(v), val(v)) },
		func(a, b map[K]V) map[K]V {
			for k, v := range b {
				a = put(a, k, v)
			}
			return a
		})
}

// Lookup maps keys to the elements that have them.
type Lookup[K comparable, T any] struct {
	keys   []K
	groups map[K][]T
}

// Len returns the number of keys.
func (l *Lookup[K, T]) Len() int { return len(l.keys) }

// Get returns the elements with key k.
func (l *Lookup[K, T]) Get(k K) []T { return l.groups[k] }

// Keys returns the keys, in the order of their first element if the query
// was ordered.
func (l *Lookup[K, T]) Keys() []K { return l.keys }

// All iterates over the keys and their elements.
func (l *Lookup[K, T]) All() iter.Seq2[K, []T] {
	return func(yield func(K, []T) bool) {
		for _, k := range l.keys {
			if !yield(k, l.groups[k]) {
				return
			}
		}
	}
}

// ToLookup groups the elements by key.
func ToLookup[T any, K comparable](ctx context.Context, q Query[T], key func(T) K) (*Lookup[K, T], error) {
	if key == nil {
		return nil, execerror.NewArgumentError("ToLookup", "keySelector", "must not be nil")
	}
	groups, err := GroupBy(q, key).ToSlice(ctx)
	if err != nil {
		return nil, err
	}
	l := &Lookup[K, T]{keys: make([]K, len(groups)), groups: make(map[K][]T, len(groups))}
	for i, g := range groups {
		l.keys[i] = g.Key
		l.groups[g.Key] = g.Elems
	}
	return l, nil
}

// SequenceEqual returns whether a and b produce equal elements in the same
// order. Both queries are collected concurrently and in order, then compared
// in parallel.
func SequenceEqual[T comparable](ctx context.Context, a, b Query[T]) (bool, error) {
	return sequenceEqual(ctx, a, b, func(x, y T) bool { return x == y })
}

// SequenceEqualWith is SequenceEqual with an explicit comparer.
func SequenceEqualWith[T any](ctx context.Context, a, b Query[T], eq EqualityComparer[T]) (bool, error) {
	if eq == nil {
		return false, execerror.NewArgumentError("SequenceEqual", "comparer", "must not be nil")
	}
	return sequenceEqual(ctx, a, b, eq.Equal)
}

func sequenceEqual[T any](ctx context.Context, a, b Query[T], equal func(x, y T) bool) (bool, error) {
	var first, second []T
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		first, err = a.AsOrdered().ToSlice(gCtx)
		return err
	})
	g.Go(func() (err error) {
		second, err = b.AsOrdered().ToSlice(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, err
	}
	if len(first) != len(second) {
		return false, nil
	}
	differs, err := Range(0, len(first)).Any(ctx, func(i int) bool {
		return !equal(first[i], second[i])
	})
	return !differs, err
}
