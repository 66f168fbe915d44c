// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pquery/pkg/pquery"
)

// preparedQuery is a workload bound to its input and options, ready to run.
type preparedQuery struct {
	plan string
	run  func(ctx context.Context) (result string, err error)
}

type workload struct {
	name    string
	desc    string
	prepare func(data []int, dop int, opts ...pquery.SourceOption) preparedQuery
}

const joinDimension = 1024

var workloads = []workload{
	{
		name: "sum",
		desc: "sum of the squares of the even elements",
		prepare: func(data []int, dop int, opts ...pquery.SourceOption) preparedQuery {
			even := pquery.FromSlice(data, opts...).Filter(func(v int) bool { return v%2 == 0 })
			q := pquery.Map(even, func(v int) int64 { return int64(v) * int64(v) }).
				WithDegreeOfParallelism(dop)
			return preparedQuery{
				plan: q.Explain(),
				run: func(ctx context.Context) (string, error) {
					s, err := pquery.Sum(ctx, q)
					return fmt.Sprint(s), err
				},
			}
		},
	},
	{
		name: "sort",
		desc: "stable sort of every element by its low byte, then by value",
		prepare: func(data []int, dop int, opts ...pquery.SourceOption) preparedQuery {
			byLow := pquery.OrderBy(pquery.FromSlice(data, opts...), func(v int) int { return v & 0xff })
			q := pquery.ThenByDescending(byLow, func(v int) int { return v }).
				WithDegreeOfParallelism(dop)
			return preparedQuery{
				plan: q.Explain(),
				run: func(ctx context.Context) (string, error) {
					s, err := q.ToSlice(ctx)
					if err != nil || len(s) == 0 {
						return "", err
					}
					return fmt.Sprintf("first=%d last=%d", s[0], s[len(s)-1]), nil
				},
			}
		},
	},
	{
		name: "group",
		desc: "number of elements per residue modulo 64",
		prepare: func(data []int, dop int, opts ...pquery.SourceOption) preparedQuery {
			groups := pquery.GroupBy(pquery.FromSlice(data, opts...), func(v int) int { return v % 64 })
			q := pquery.Map(groups, func(g pquery.Grouping[int, int]) int { return len(g.Elems) }).
				WithDegreeOfParallelism(dop)
			return preparedQuery{
				plan: q.Explain(),
				run: func(ctx context.Context) (string, error) {
					largest, err := pquery.Max(ctx, q)
					return fmt.Sprintf("largest=%d", largest), err
				},
			}
		},
	},
	{
		name: "join",
		desc: "hash join of every element against a small dimension",
		prepare: func(data []int, dop int, opts ...pquery.SourceOption) preparedQuery {
			identity := func(v int) int { return v }
			q := pquery.Join(
				pquery.FromSlice(data, opts...),
				pquery.Range(0, joinDimension).Filter(func(v int) bool { return v%3 == 0 }),
				func(v int) int { return v % joinDimension },
				identity,
				func(o, i int) int { return o - i },
			).WithDegreeOfParallelism(dop)
			return preparedQuery{
				plan: q.Explain(),
				run: func(ctx context.Context) (string, error) {
					n, err := q.LongCount(ctx)
					return fmt.Sprintf("matches=%d", n), err
				},
			}
		},
	},
	{
		name: "distinct",
		desc: "number of distinct elements",
		prepare: func(data []int, dop int, opts ...pquery.SourceOption) preparedQuery {
			q := pquery.FromSlice(data, opts...).Distinct().WithDegreeOfParallelism(dop)
			return preparedQuery{
				plan: q.Explain(),
				run: func(ctx context.Context) (string, error) {
					n, err := q.Count(ctx)
					return fmt.Sprintf("distinct=%d", n), err
				},
			}
		},
	},
	{
		name: "take",
		desc: "first 1000 odd elements, in input order",
		prepare: func(data []int, dop int, opts ...pquery.SourceOption) preparedQuery {
			q := pquery.FromSlice(data, opts...).AsOrdered().
				Filter(func(v int) bool { return v%2 != 0 }).
				Take(1000).
				WithDegreeOfParallelism(dop)
			return preparedQuery{
				plan: q.Explain(),
				run: func(ctx context.Context) (string, error) {
					s, err := q.ToSlice(ctx)
					return fmt.Sprintf("taken=%d", len(s)), err
				},
			}
		},
	},
}

func workloadNames() []string {
	names := make([]string, 0, len(workloads))
	for _, w := range workloads {
		names = append(names, w.name)
	}
	return names
}

func lookupWorkloads(names []string) ([]workload, error) {
	var res []workload
	for _, name := range names {
		found := false
		for _, w := range workloads {
			if w.name == name {
				res = append(res, w)
				found = true
				break
			}
		}
		if !found {
			return nil, errors.Newf("unknown workload %q; valid workloads: %s",
				name, strings.Join(workloadNames(), ", "))
		}
	}
	return res, nil
}

func parsePartitioning(s string) (pquery.Partitioning, error) {
	for _, k := range []pquery.Partitioning{
		pquery.AutoPartitioning, pquery.RangePartitioning,
		pquery.ChunkPartitioning, pquery.StripPartitioning,
	} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, errors.Newf("unknown partitioning %q", s)
}

// generate returns n pseudo-random elements in [0, n), reproducible for a
// given seed.
func generate(n int, seed uint64) []int {
	rng := rand.New(rand.NewPCG(seed, seed))
	data := make([]int, n)
	for i := range data {
		data[i] = rng.IntN(max(n, 1))
	}
	return data
}
