// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package pquery

import (
	"context"

	"golang.org/x/exp/constraints"
)

// Number is the set of types supported by Sum and Average.
type Number interface {
	constraints.Integer | constraints.Float
}

// Sum returns the sum of the elements, or zero if there is none.
func Sum[T Number](ctx context.Context, q Query[T]) (T, error) {
	add := func(a, b T) T { return a + b }
	return Aggregate(ctx, q, func() T { return 0 }, add, add)
}

type minMax[T any] struct {
	v  T
	ok bool
}

func extremum[T constraints.Ordered](ctx context.Context, q Query[T], better func(a, b T) bool) (T, error) {
	pick := func(acc minMax[T], v T) minMax[T] {
		if !acc.ok || better(v, acc.v) {
			return minMax[T]{v: v, ok: true}
		}
		return acc
	}
	res, err := Aggregate(ctx, q,
		func() minMax[T] { return minMax[T]{} },
		pick,
		func(a, b minMax[T]) minMax[T] {
			if !b.ok {
				return a
			}
			return pick(a, b.v)
		})
	if err == nil && !res.ok {
		err = ErrNoElements
	}
	return res.v, err
}

// Min returns the smallest element. It fails with ErrNoElements if there is
// none.
func Min[T constraints.Ordered](ctx context.Context, q Query[T]) (T, error) {
	return extremum(ctx, q, func(a, b T) bool { return a < b })
}

// Max returns the largest element. It fails with ErrNoElements if there is
// none.
func Max[T constraints.Ordered](ctx context.Context, q Query[T]) (T, error) {
	return extremum(ctx, q, func(a, b T) bool { return a > b })
}

type average struct {
	sum   float64
	count int64
}

// Average returns the mean of the elements. It fails with ErrNoElements if
// there is none.
func Average[T Number](ctx context.Context, q Query[T]) (float64, error) {
	res, err := Aggregate(ctx, q,
		func() average { return average{} },
		func(acc average, v T) average { return average{sum: acc.sum + float64(v), count: acc.count + 1} },
		func(a, b average) average { return average{sum: a.sum + b.sum, count: a.count + b.count} })
	if err != nil {
		return 0, err
	}
	if res.count == 0 {
		return 0, ErrNoElements
	}
	return res.sum / float64(res.count), nil
}
