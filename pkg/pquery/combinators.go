// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package pquery

import (
	"iter"
	"reflect"

	"github.com/cockroachdb/pquery/pkg/pquery/execerror"
	"github.com/cockroachdb/pquery/pkg/pquery/opgraph"
)

// The adapters below erase the static types of user functions. A nil
// function stays nil so that the operator graph rejects it when the
// combinator is called.

func unary[T, U any](fn func(T) U) func(any) any {
	if fn == nil {
		return nil
	}
	return func(v any) any { return fn(as[T](v)) }
}

func predicate[T any](fn func(T) bool) func(any) bool {
	if fn == nil {
		return nil
	}
	return func(v any) bool { return fn(as[T](v)) }
}

func indexedUnary[T, U any](fn func(T, int) U) func(any, int64) any {
	if fn == nil {
		return nil
	}
	return func(v any, idx int64) any { return fn(as[T](v), int(idx)) }
}

func indexedPredicate[T any](fn func(T, int) bool) func(any, int64) bool {
	if fn == nil {
		return nil
	}
	return func(v any, idx int64) bool { return fn(as[T](v), int(idx)) }
}

func binary[A, B, R any](fn func(A, B) R) func(a, b any) any {
	if fn == nil {
		return nil
	}
	return func(a, b any) any { return fn(as[A](a), as[B](b)) }
}

// EqualityComparer defines equality over values that are not comparable
// with ==, or that need a different notion of equality. Values that are
// equal must have the same hash.
type EqualityComparer[T any] interface {
	Equal(a, b T) bool
	Hash(v T) uint64
}

func equality[T any](eq EqualityComparer[T]) *opgraph.Equality {
	if eq == nil {
		return &opgraph.Equality{}
	}
	return &opgraph.Equality{
		Equal: func(a, b any) bool { return eq.Equal(as[T](a), as[T](b)) },
		Hash:  func(v any) uint64 { return eq.Hash(as[T](v)) },
	}
}

// Map returns a query applying fn to every element.
func Map[T, U any](q Query[T], fn func(T) U) Query[U] {
	return wrap[U](opgraph.NewMap(q.node, unary(fn)))
}

// MapIndexed is Map with a function that also receives the position of the
// element in the input. The query becomes ordered.
func MapIndexed[T, U any](q Query[T], fn func(T, int) U) Query[U] {
	return wrap[U](opgraph.NewMapIndexed(q.node, indexedUnary(fn)))
}

// Filter returns a query keeping the elements satisfying pred.
func (q Query[T]) Filter(pred func(T) bool) Query[T] {
	return wrap[T](opgraph.NewFilter(q.node, predicate(pred)))
}

// FilterIndexed is Filter with a predicate that also receives the position
// of the element in the input. The query becomes ordered.
func (q Query[T]) FilterIndexed(pred func(T, int) bool) Query[T] {
	return wrap[T](opgraph.NewFilterIndexed(q.node, indexedPredicate(pred)))
}

// FlatMap returns a query producing, for every element, the elements of the
// sequence returned by fn. A nil sequence produces nothing.
func FlatMap[T, U any](q Query[T], fn func(T) iter.Seq[U]) Query[U] {
	var erased func(any) iter.Seq[any]
	if fn != nil {
		erased = func(v any) iter.Seq[any] {
			inner := fn(as[T](v))
			if inner == nil {
				return nil
			}
			return func(yield func(any) bool) {
				for x := range inner {
					if !yield(x) {
						return
					}
				}
			}
		}
	}
	return wrap[U](opgraph.NewFlatMap(q.node, erased))
}

// Take returns a query producing the first n elements of an ordered query,
// or any n elements of an unordered one.
func (q Query[T]) Take(n int) Query[T] {
	return wrap[T](opgraph.NewTake(q.node, int64(n)))
}

// Skip returns a query dropping the first n elements of an ordered query,
// or any n elements of an unordered one.
func (q Query[T]) Skip(n int) Query[T] {
	return wrap[T](opgraph.NewSkip(q.node, int64(n)))
}

// TakeWhile returns a query producing elements up to, and not including, the
// first one failing pred. The query becomes ordered.
func (q Query[T]) TakeWhile(pred func(T) bool) Query[T] {
	return wrap[T](opgraph.NewTakeWhile(q.node, predicate(pred)))
}

// TakeWhileIndexed is TakeWhile with an index-aware predicate.
func (q Query[T]) TakeWhileIndexed(pred func(T, int) bool) Query[T] {
	return wrap[T](opgraph.NewTakeWhileIndexed(q.node, indexedPredicate(pred)))
}

// SkipWhile returns a query dropping elements up to the first one failing
// pred. The query becomes ordered.
func (q Query[T]) SkipWhile(pred func(T) bool) Query[T] {
	return wrap[T](opgraph.NewSkipWhile(q.node, predicate(pred)))
}

// SkipWhileIndexed is SkipWhile with an index-aware predicate.
func (q Query[T]) SkipWhileIndexed(pred func(T, int) bool) Query[T] {
	return wrap[T](opgraph.NewSkipWhileIndexed(q.node, indexedPredicate(pred)))
}

// Concat returns a query producing the elements of q followed by the
// elements of other.
func (q Query[T]) Concat(other Query[T]) Query[T] {
	return wrap[T](opgraph.NewConcat(q.node, other.node))
}

// Zip returns a query pairing the elements of a and b by position. It stops
// at the end of the shorter input and is ordered.
func Zip[A, B, R any](a Query[A], b Query[B], fn func(A, B) R) Query[R] {
	return wrap[R](opgraph.NewZip(a.node, b.node, binary(fn)))
}

// Reverse returns a query producing the elements of q back to front. The
// query becomes ordered.
func (q Query[T]) Reverse() Query[T] { return wrap[T](opgraph.NewReverse(q.node)) }

// DefaultIfEmpty returns a query producing v if q produces nothing.
func (q Query[T]) DefaultIfEmpty(v T) Query[T] {
	return wrap[T](opgraph.NewDefaultIfEmpty(q.node, v))
}

// Distinct returns a query producing the first occurrence of every element.
// Elements are compared with ==, and must be comparable.
func (q Query[T]) Distinct() Query[T] {
	return wrap[T](opgraph.NewDistinct(q.node, nil))
}

// DistinctWith is Distinct with an explicit comparer.
func (q Query[T]) DistinctWith(eq EqualityComparer[T]) Query[T] {
	return wrap[T](opgraph.NewDistinct(q.node, equality(eq)))
}

// Union returns a query producing the distinct elements of q and other.
func (q Query[T]) Union(other Query[T]) Query[T] {
	return wrap[T](opgraph.NewSetOp(opgraph.Union, q.node, other.node, nil))
}

// UnionWith is Union with an explicit comparer.
func (q Query[T]) UnionWith(other Query[T], eq EqualityComparer[T]) Query[T] {
	return wrap[T](opgraph.NewSetOp(opgraph.Union, q.node, other.node, equality(eq)))
}

// Intersect returns a query producing the distinct elements of q that other
// also produces.
func (q Query[T]) Intersect(other Query[T]) Query[T] {
	return wrap[T](opgraph.NewSetOp(opgraph.Intersect, q.node, other.node, nil))
}

// IntersectWith is Intersect with an explicit comparer.
func (q Query[T]) IntersectWith(other Query[T], eq EqualityComparer[T]) Query[T] {
	return wrap[T](opgraph.NewSetOp(opgraph.Intersect, q.node, other.node, equality(eq)))
}

// Except returns a query producing the distinct elements of q that other
// does not produce.
func (q Query[T]) Except(other Query[T]) Query[T] {
	return wrap[T](opgraph.NewSetOp(opgraph.Except, q.node, other.node, nil))
}

// ExceptWith is Except with an explicit comparer.
func (q Query[T]) ExceptWith(other Query[T], eq EqualityComparer[T]) Query[T] {
	return wrap[T](opgraph.NewSetOp(opgraph.Except, q.node, other.node, equality(eq)))
}

func castSpec[U any](strict bool) opgraph.CastSpec {
	return opgraph.CastSpec{
		Convert: func(v any) (any, bool) {
			u, ok := v.(U)
			return u, ok
		},
		Strict: strict,
		Target: reflect.TypeFor[U]().String(),
	}
}

// Cast returns a query converting every element to U with a type assertion.
// The query fails with ErrInvalidCast on the first element that is not a U.
func Cast[U, T any](q Query[T]) Query[U] {
	return wrap[U](opgraph.NewCast(q.node, castSpec[U](true)))
}

// OfType returns a query keeping the elements that are a U.
func OfType[U, T any](q Query[T]) Query[U] {
	return wrap[U](opgraph.NewCast(q.node, castSpec[U](false)))
}

// Grouping is a group of elements sharing a key.
type Grouping[K, T any] struct {
	Key   K
	Elems []T
}

func groupBy[T, K, E any](
	q Query[T], key func(T) K, elem func(T) E, eq *opgraph.Equality,
) Query[Grouping[K, E]] {
	spec := opgraph.GroupBySpec{
		Key: unary(key),
		Result: func(k any, elems []any) any {
			g := Grouping[K, E]{Key: as[K](k), Elems: make([]E, len(elems))}
			for i, e := range elems {
				g.Elems[i] = as[E](e)
			}
			return g
		},
		Eq: eq,
	}
	if elem != nil {
		spec.Elem = unary(elem)
	}
	return wrap[Grouping[K, E]](opgraph.NewGroupBy(q.node, spec))
}

// GroupBy returns a query producing one Grouping per distinct key. Groups
// appear in the order of their first element if q is ordered, and their
// elements in input order.
func GroupBy[T any, K comparable](q Query[T], key func(T) K) Query[Grouping[K, T]] {
	return groupBy[T, K, T](q, key, nil, nil)
}

// GroupByElem is GroupBy with a projection of the grouped elements.
func GroupByElem[T any, K comparable, E any](
	q Query[T], key func(T) K, elem func(T) E,
) Query[Grouping[K, E]] {
	if elem == nil {
		panic(execerror.NewArgumentError("GroupBy", "elementSelector", "must not be nil"))
	}
	return groupBy(q, key, elem, nil)
}

// GroupByWith is GroupBy with an explicit key comparer.
func GroupByWith[T, K any](
	q Query[T], key func(T) K, eq EqualityComparer[K],
) Query[Grouping[K, T]] {
	return groupBy[T, K, T](q, key, nil, equality(eq))
}

func joinSpec[O, I, K any](outerKey func(O) K, innerKey func(I) K) opgraph.JoinSpec {
	return opgraph.JoinSpec{OuterKey: unary(outerKey), InnerKey: unary(innerKey)}
}

// Join returns a query producing result(o, i) for every pair of elements of
// outer and inner with equal keys. Matches follow the order of outer, then
// of inner.
func Join[O, I any, K comparable, R any](
	outer Query[O], inner Query[I], outerKey func(O) K, innerKey func(I) K, result func(O, I) R,
) Query[R] {
	spec := joinSpec(outerKey, innerKey)
	spec.Result = binary(result)
	return wrap[R](opgraph.NewJoin(outer.node, inner.node, spec))
}

// JoinWith is Join with an explicit key comparer.
func JoinWith[O, I, K, R any](
	outer Query[O],
	inner Query[I],
	outerKey func(O) K,
	innerKey func(I) K,
	result func(O, I) R,
	eq EqualityComparer[K],
) Query[R] {
	spec := joinSpec(outerKey, innerKey)
	spec.Result = binary(result)
	spec.Eq = equality(eq)
	return wrap[R](opgraph.NewJoin(outer.node, inner.node, spec))
}

func groupResult[O, I, R any](result func(O, []I) R) func(any, []any) any {
	if result == nil {
		return nil
	}
	return func(o any, matches []any) any {
		typed := make([]I, len(matches))
		for i, m := range matches {
			typed[i] = as[I](m)
		}
		return result(as[O](o), typed)
	}
}

// GroupJoin returns a query producing, for every element of outer,
// result(o, matches) where matches are the elements of inner with an equal
// key. Elements without matches get an empty slice.
func GroupJoin[O, I any, K comparable, R any](
	outer Query[O], inner Query[I], outerKey func(O) K, innerKey func(I) K, result func(O, []I) R,
) Query[R] {
	spec := joinSpec(outerKey, innerKey)
	spec.GroupResult = groupResult(result)
	return wrap[R](opgraph.NewGroupJoin(outer.node, inner.node, spec))
}

// GroupJoinWith is GroupJoin with an explicit key comparer.
func GroupJoinWith[O, I, K, R any](
	outer Query[O],
	inner Query[I],
	outerKey func(O) K,
	innerKey func(I) K,
	result func(O, []I) R,
	eq EqualityComparer[K],
) Query[R] {
	spec := joinSpec(outerKey, innerKey)
	spec.GroupResult = groupResult(result)
	spec.Eq = equality(eq)
	return wrap[R](opgraph.NewGroupJoin(outer.node, inner.node, spec))
}
