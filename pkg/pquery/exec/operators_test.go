// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"runtime"
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pquery/pkg/pquery/execerror"
	"github.com/cockroachdb/pquery/pkg/pquery/opgraph"
	"github.com/cockroachdb/pquery/pkg/pquery/partition"
	"github.com/cockroachdb/pquery/pkg/pquery/sorter"
	"github.com/cockroachdb/pquery/pkg/util/leaktest"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func source(vals []int, forwardOnly bool) *opgraph.Node {
	if forwardOnly {
		return opgraph.NewStart(partition.Seq[int](slices.Values(vals)), partition.Auto)
	}
	return opgraph.NewStart(partition.Slice[int](vals), partition.Auto)
}

func byValue() *sorter.Chain {
	c, err := sorter.NewChain(func(v any) any { return v }, func(a, b any) int {
		return cmp.Compare(a.(int), b.(int))
	}, sorter.Ascending)
	if err != nil {
		panic(err)
	}
	return c
}

func asInts(vals []any) []int {
	if len(vals) == 0 {
		return nil
	}
	res := make([]int, len(vals))
	for i, v := range vals {
		res[i] = v.(int)
	}
	return res
}

// TestOperators runs every operator against fixed ordered inputs over a
// range of partition counts and both kinds of sources.
func TestOperators(t *testing.T) {
	defer leaktest.AfterTest(t)()

	in := []int{5, 3, 8, 3, 1, 9, 2, 8, 7, 5, 0, 6}
	other := []int{8, 4, 5, 10, 3}
	isEven := func(v any) bool { return v.(int)%2 == 0 }

	testCases := []struct {
		name     string
		build    func(src, other *opgraph.Node) *opgraph.Node
		expected []int
	}{
		{
			name: "map",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewMap(src, func(v any) any { return v.(int) * 10 })
			},
			expected: []int{50, 30, 80, 30, 10, 90, 20, 80, 70, 50, 0, 60},
		},
		{
			name: "map-indexed-after-filter",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewMapIndexed(opgraph.NewFilter(src, isEven), func(v any, idx int64) any {
					return int(idx)*100 + v.(int)
				})
			},
			expected: []int{8, 102, 208, 300, 406},
		},
		{
			name: "filter-indexed",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewFilterIndexed(src, func(_ any, idx int64) bool { return idx%3 == 0 })
			},
			expected: []int{5, 3, 2, 5},
		},
		{
			name: "flat-map",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewFlatMap(opgraph.NewTake(src, 4), func(v any) iter.Seq[any] {
					return func(yield func(any) bool) {
						for i := 0; i < v.(int)%3; i++ {
							if !yield(v.(int)*10 + i) {
								return
							}
						}
					}
				})
			},
			expected: []int{50, 51, 80, 81},
		},
		{
			name: "order-by",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewOrderBy(src, byValue())
			},
			expected: []int{0, 1, 2, 3, 3, 5, 5, 6, 7, 8, 8, 9},
		},
		{
			name: "group-by",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewGroupBy(src, opgraph.GroupBySpec{
					Key: func(v any) any { return v.(int) % 3 },
					Result: func(key any, elems []any) any {
						sum := 0
						for _, e := range elems {
							sum += e.(int)
						}
						return key.(int)*1000 + sum
					},
				})
			},
			// Keys in order of first appearance: 2 (5+8+2+8+5), 0 (3+3+9+0+6), 1 (1+7).
			expected: []int{2028, 21, 1008},
		},
		{
			name: "join",
			build: func(src, other *opgraph.Node) *opgraph.Node {
				return opgraph.NewJoin(src, other, opgraph.JoinSpec{
					OuterKey: func(v any) any { return v },
					InnerKey: func(v any) any { return v },
					Result:   func(a, b any) any { return a.(int) + b.(int) },
				})
			},
			expected: []int{10, 6, 16, 6, 16, 10},
		},
		{
			name: "group-join",
			build: func(src, other *opgraph.Node) *opgraph.Node {
				return opgraph.NewGroupJoin(opgraph.NewTake(src, 4), other, opgraph.JoinSpec{
					OuterKey: func(v any) any { return v },
					InnerKey: func(v any) any { return v.(int) % 5 },
					GroupResult: func(v any, matches []any) any {
						return v.(int)*10 + len(matches)
					},
				})
			},
			// Inner keys: 3, 4, 0, 0, 3.
			expected: []int{50, 32, 80, 32},
		},
		{
			name: "take",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewTake(src, 5)
			},
			expected: []int{5, 3, 8, 3, 1},
		},
		{
			name: "skip",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewSkip(src, 9)
			},
			expected: []int{5, 0, 6},
		},
		{
			name: "skip-past-end",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewSkip(src, 100)
			},
			expected: nil,
		},
		{
			name: "take-while",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewTakeWhile(src, func(v any) bool { return v.(int) > 2 })
			},
			expected: []int{5, 3, 8, 3},
		},
		{
			name: "skip-while-indexed",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewSkipWhileIndexed(src, func(v any, idx int64) bool { return idx < 3 || v.(int) != 9 })
			},
			expected: []int{9, 2, 8, 7, 5, 0, 6},
		},
		{
			name: "concat",
			build: func(src, other *opgraph.Node) *opgraph.Node {
				return opgraph.NewConcat(opgraph.NewTake(src, 3), other)
			},
			expected: []int{5, 3, 8, 8, 4, 5, 10, 3},
		},
		{
			name: "zip",
			build: func(src, other *opgraph.Node) *opgraph.Node {
				return opgraph.NewZip(src, other, func(a, b any) any { return a.(int)*100 + b.(int) })
			},
			expected: []int{508, 304, 805, 310, 103},
		},
		{
			name: "distinct",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewDistinct(src, nil)
			},
			expected: []int{5, 3, 8, 1, 9, 2, 7, 0, 6},
		},
		{
			name: "union",
			build: func(src, other *opgraph.Node) *opgraph.Node {
				return opgraph.NewSetOp(opgraph.Union, src, other, nil)
			},
			expected: []int{5, 3, 8, 1, 9, 2, 7, 0, 6, 4, 10},
		},
		{
			name: "intersect",
			build: func(src, other *opgraph.Node) *opgraph.Node {
				return opgraph.NewSetOp(opgraph.Intersect, src, other, nil)
			},
			expected: []int{5, 3, 8},
		},
		{
			name: "except",
			build: func(src, other *opgraph.Node) *opgraph.Node {
				return opgraph.NewSetOp(opgraph.Except, src, other, nil)
			},
			expected: []int{1, 9, 2, 7, 0, 6},
		},
		{
			name: "distinct-with-comparer",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewDistinct(src, &opgraph.Equality{
					Equal: func(a, b any) bool { return a.(int)%4 == b.(int)%4 },
					Hash:  func(a any) uint64 { return uint64(a.(int) % 4) },
				})
			},
			expected: []int{5, 3, 8, 2},
		},
		{
			name: "reverse",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewReverse(opgraph.NewTake(src, 4))
			},
			expected: []int{3, 8, 3, 5},
		},
		{
			name: "default-if-empty",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewDefaultIfEmpty(opgraph.NewFilter(src, func(v any) bool { return v.(int) > 100 }), -1)
			},
			expected: []int{-1},
		},
		{
			name: "default-if-empty-non-empty",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				return opgraph.NewDefaultIfEmpty(opgraph.NewTake(src, 2), -1)
			},
			expected: []int{5, 3},
		},
		{
			name: "of-type",
			build: func(src, _ *opgraph.Node) *opgraph.Node {
				mixed := opgraph.NewMap(src, func(v any) any {
					if v.(int)%2 == 0 {
						return fmt.Sprint(v)
					}
					return v
				})
				return opgraph.NewCast(mixed, opgraph.CastSpec{
					Convert: func(v any) (any, bool) { i, ok := v.(int); return i, ok },
					Target:  "int",
				})
			},
			expected: []int{5, 3, 3, 1, 9, 7, 5},
		},
		{
			name: "chained-barriers",
			build: func(src, other *opgraph.Node) *opgraph.Node {
				sorted := opgraph.NewOrderBy(opgraph.NewDistinct(opgraph.NewConcat(src, other), nil), byValue())
				return opgraph.NewTake(opgraph.NewSkip(sorted, 2), 4)
			},
			expected: []int{2, 3, 4, 5},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for dop := 1; dop <= 8; dop++ {
				for _, forwardOnly := range []bool{false, true} {
					root := tc.build(
						opgraph.NewAsOrdered(source(in, forwardOnly)),
						opgraph.NewAsOrdered(source(other, forwardOnly)))
					root = opgraph.NewDegreeOfParallelism(root, dop)
					vals, err := Collect(context.Background(), root)
					require.NoError(t, err)
					require.Equal(t, tc.expected, asInts(vals), "dop=%d forward=%t", dop, forwardOnly)
				}
			}
		})
	}
}

func TestStrictCastFaults(t *testing.T) {
	defer leaktest.AfterTest(t)()
	mixed := opgraph.NewMap(source([]int{1, 2, 3}, false), func(v any) any {
		if v.(int) == 2 {
			return "two"
		}
		return v
	})
	root := opgraph.NewCast(mixed, opgraph.CastSpec{
		Convert: func(v any) (any, bool) { i, ok := v.(int); return i, ok },
		Strict:  true,
		Target:  "int",
	})
	_, err := Collect(context.Background(), root)
	require.True(t, errors.Is(err, execerror.ErrInvalidCast), "%+v", err)
}

func TestBarrierFaultStopsQuery(t *testing.T) {
	defer leaktest.AfterTest(t)()
	boom := errors.New("boom")
	chain, err := sorter.NewChain(func(v any) any {
		if v.(int) == 7 {
			panic(boom)
		}
		return v
	}, func(a, b any) int { return cmp.Compare(a.(int), b.(int)) }, sorter.Ascending)
	require.NoError(t, err)
	var after int
	root := opgraph.NewMap(opgraph.NewOrderBy(source([]int{3, 7, 1}, false), chain), func(v any) any {
		after++
		return v
	})
	_, err = Collect(context.Background(), root)
	require.True(t, errors.Is(err, boom))
	require.Zero(t, after)
}

// TestOrderPreservation checks that under the order guard, pipelines of
// fused operators produce the same sequence as their sequential rendition
// regardless of the partition count.
func TestOrderPreservation(t *testing.T) {
	defer leaktest.AfterTest(t)()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	maxDOP := min(2*runtime.GOMAXPROCS(0), 63)
	properties.Property("ordered output matches the sequential result", prop.ForAll(
		func(vals []int, dop int, forwardOnly bool, take int) bool {
			root := opgraph.NewTake(
				opgraph.NewMap(
					opgraph.NewFilter(opgraph.NewAsOrdered(source(vals, forwardOnly)), func(v any) bool { return v.(int)%3 != 0 }),
					func(v any) any { return v.(int) + 1 }),
				int64(take))
			root = opgraph.NewDegreeOfParallelism(root, dop)
			got, err := Collect(context.Background(), root)
			if err != nil {
				return false
			}
			var expected []int
			for _, v := range vals {
				if v%3 != 0 && len(expected) < take {
					expected = append(expected, v+1)
				}
			}
			return slices.Equal(expected, asInts(got))
		},
		gen.SliceOf(gen.IntRange(-100, 100)),
		gen.IntRange(1, maxDOP),
		gen.Bool(),
		gen.IntRange(0, 200),
	))
	properties.TestingRun(t)
}

func TestUnorderedTakeCount(t *testing.T) {
	defer leaktest.AfterTest(t)()
	for dop := 1; dop <= 8; dop++ {
		vals, err := Collect(context.Background(),
			opgraph.NewDegreeOfParallelism(opgraph.NewTake(source(make([]int, 1000), true), 17), dop))
		require.NoError(t, err)
		require.Len(t, vals, 17)

		vals, err = Collect(context.Background(),
			opgraph.NewDegreeOfParallelism(opgraph.NewSkip(source(make([]int, 1000), false), 17), dop))
		require.NoError(t, err)
		require.Len(t, vals, 983)
	}
}
