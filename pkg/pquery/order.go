// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package pquery

import (
	"cmp"

	"github.com/cockroachdb/pquery/pkg/pquery/execerror"
	"github.com/cockroachdb/pquery/pkg/pquery/opgraph"
	"github.com/cockroachdb/pquery/pkg/pquery/sorter"
)

// OrderedQuery is a query sorted by OrderBy, which ThenBy can refine with
// further keys.
type OrderedQuery[T any] struct {
	Query[T]
	// input is the query that is sorted, shared by every refinement.
	input *opgraph.Node
	chain *sorter.Chain
}

func keyFunc[T, K any](op string, key func(T) K) sorter.KeyFunc {
	if key == nil {
		panic(execerror.NewArgumentError(op, "keySelector", "must not be nil"))
	}
	return func(v any) any { return key(as[T](v)) }
}

func compareFunc[K any](op string, compare func(a, b K) int) sorter.CompareFunc {
	if compare == nil {
		panic(execerror.NewArgumentError(op, "comparer", "must not be nil"))
	}
	return func(a, b any) int { return compare(as[K](a), as[K](b)) }
}

func orderBy[T, K any](
	op string, q Query[T], key func(T) K, compare func(a, b K) int, dir sorter.Direction,
) OrderedQuery[T] {
	chain, err := sorter.NewChain(keyFunc(op, key), compareFunc(op, compare), dir)
	if err != nil {
		panic(err)
	}
	return OrderedQuery[T]{
		Query: wrap[T](opgraph.NewOrderBy(q.node, chain)),
		input: q.node,
		chain: chain,
	}
}

func thenBy[T, K any](
	op string, q OrderedQuery[T], key func(T) K, compare func(a, b K) int, dir sorter.Direction,
) OrderedQuery[T] {
	if q.chain == nil {
		panic(execerror.NewArgumentError(op, "source", "must be sorted by OrderBy"))
	}
	chain, err := q.chain.Then(keyFunc(op, key), compareFunc(op, compare), dir)
	if err != nil {
		panic(err)
	}
	return OrderedQuery[T]{
		Query: wrap[T](opgraph.NewOrderBy(q.input, chain)),
		input: q.input,
		chain: chain,
	}
}

// OrderBy returns a query sorted by key in ascending order. Elements with
// equal keys keep their relative input order.
func OrderBy[T any, K cmp.Ordered](q Query[T], key func(T) K) OrderedQuery[T] {
	return orderBy("OrderBy", q, key, cmp.Compare[K], sorter.Ascending)
}

// OrderByDescending is OrderBy in descending order.
func OrderByDescending[T any, K cmp.Ordered](q Query[T], key func(T) K) OrderedQuery[T] {
	return orderBy("OrderByDescending", q, key, cmp.Compare[K], sorter.Descending)
}

// OrderByFunc is OrderBy with an explicit comparison function, which returns
// a negative number, zero or a positive number.
func OrderByFunc[T, K any](q Query[T], key func(T) K, compare func(a, b K) int) OrderedQuery[T] {
	return orderBy("OrderBy", q, key, compare, sorter.Ascending)
}

// OrderByDescendingFunc is OrderByFunc in descending order.
func OrderByDescendingFunc[T, K any](
	q Query[T], key func(T) K, compare func(a, b K) int,
) OrderedQuery[T] {
	return orderBy("OrderByDescending", q, key, compare, sorter.Descending)
}

// ThenBy returns a query sorting elements with equal keys in q by key, in
// ascending order. q is not modified.
func ThenBy[T any, K cmp.Ordered](q OrderedQuery[T], key func(T) K) OrderedQuery[T] {
	return thenBy("ThenBy", q, key, cmp.Compare[K], sorter.Ascending)
}

// ThenByDescending is ThenBy in descending order.
func ThenByDescending[T any, K cmp.Ordered](q OrderedQuery[T], key func(T) K) OrderedQuery[T] {
	return thenBy("ThenByDescending", q, key, cmp.Compare[K], sorter.Descending)
}

// ThenByFunc is ThenBy with an explicit comparison function.
func ThenByFunc[T, K any](
	q OrderedQuery[T], key func(T) K, compare func(a, b K) int,
) OrderedQuery[T] {
	return thenBy("ThenBy", q, key, compare, sorter.Ascending)
}

// ThenByDescendingFunc is ThenByFunc in descending order.
func ThenByDescendingFunc[T, K any](
	q OrderedQuery[T], key func(T) K, compare func(a, b K) int,
) OrderedQuery[T] {
	return thenBy("ThenByDescending", q, key, compare, sorter.Descending)
}
