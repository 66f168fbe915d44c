// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package sorter

import (
	"cmp"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

// compareValues orders ints numerically and everything else as strings.
func compareValues(a, b any) int {
	ai, aok := a.(int)
	bi, bok := b.(int)
	if aok && bok {
		return cmp.Compare(ai, bi)
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func column(i int) KeyFunc {
	return func(e any) any { return e.([]any)[i] }
}

func parseRows(input string) []any {
	var rows []any
	for _, line := range strings.Split(input, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var row []any
		for _, f := range strings.Fields(line) {
			if n, err := strconv.Atoi(f); err == nil {
				row = append(row, n)
			} else {
				row = append(row, f)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// TestSortDataDriven runs the sort test files. The "sort" command takes
// by=(col:dir,...) and the rows to sort as input; it prints the sorted rows
// along with their original position.
func TestSortDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "sort":
				var chain *Chain
				var comparisons, keyCalls int
				for _, arg := range d.CmdArgs {
					if arg.Key != "by" {
						continue
					}
					for _, v := range arg.Vals {
						col, dirStr, _ := strings.Cut(v, ":")
						c, err := strconv.Atoi(col)
						require.NoError(t, err)
						dir := Ascending
						if dirStr == "desc" {
							dir = Descending
						}
						key := column(c)
						countingKey := func(e any) any { keyCalls++; return key(e) }
						countingCmp := func(a, b any) int { comparisons++; return compareValues(a, b) }
						if chain == nil {
							chain, err = NewChain(countingKey, countingCmp, dir)
						} else {
							chain, err = chain.Then(countingKey, countingCmp, dir)
						}
						require.NoError(t, err)
					}
				}
				require.NotNil(t, chain, "sort requires by=(...)")
				rows := parseRows(d.Input)
				var buf strings.Builder
				for _, origin := range Sort(rows, chain) {
					for j, f := range rows[origin].([]any) {
						if j > 0 {
							buf.WriteByte(' ')
						}
						fmt.Fprint(&buf, f)
					}
					fmt.Fprintf(&buf, "  #%d\n", origin)
				}
				if d.HasArg("stats") {
					fmt.Fprintf(&buf, "key calls: %d, comparisons > 0: %t\n", keyCalls, comparisons > 0)
				}
				return buf.String()
			default:
				d.Fatalf(t, "unknown command %s", d.Cmd)
				return ""
			}
		})
	})
}

func TestSortTrivialInputs(t *testing.T) {
	calls := 0
	chain, err := NewChain(
		func(e any) any { calls++; return e },
		func(a, b any) int { calls++; return compareValues(a, b) },
		Descending,
	)
	require.NoError(t, err)
	require.Empty(t, Sort(nil, chain))
	require.Equal(t, []int{0}, Sort([]any{7}, chain))
	require.Zero(t, calls)
}

func TestChainIsPersistent(t *testing.T) {
	base, err := NewChain(column(0), compareValues, Ascending)
	require.NoError(t, err)
	a, err := base.Then(column(1), compareValues, Ascending)
	require.NoError(t, err)
	b, err := base.Then(column(1), compareValues, Descending)
	require.NoError(t, err)
	require.Equal(t, 1, base.Len())
	require.Equal(t, Ascending, a.Links()[1].Direction)
	require.Equal(t, Descending, b.Links()[1].Direction)

	_, err = base.Then(nil, compareValues, Ascending)
	require.Error(t, err)
	_, err = base.Then(column(0), nil, Ascending)
	require.Error(t, err)
}

// TestDescendingTieBreak pins down how equal keys are ordered under a
// descending key with no further link: they keep their original relative
// order, exactly as under an ascending key.
func TestDescendingTieBreak(t *testing.T) {
	rows := parseRows("1 a\n2 b\n1 c\n2 d\n1 e")
	for _, dir := range []Direction{Ascending, Descending} {
		chain, err := NewChain(column(0), compareValues, dir)
		require.NoError(t, err)
		origins := Sort(rows, chain)
		sorted := SortView(rows, chain)
		for i, origin := range origins {
			require.Equal(t, rows[origin], sorted.At(i))
		}
		if dir == Ascending {
			require.Equal(t, []int{0, 2, 4, 1, 3}, origins)
		} else {
			require.Equal(t, []int{1, 3, 0, 2, 4}, origins)
		}
	}
}

func TestChainedSortProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("sorted output is ordered by every link in turn", prop.ForAll(
		func(flat []int, depth int, dirs []bool) bool {
			const width = 4
			var rows []any
			for i := 0; i+width <= len(flat); i += width {
				row := make([]any, width)
				for j := range row {
					row[j] = flat[i+j]
				}
				rows = append(rows, row)
			}
			var chain *Chain
			var err error
			for l := 0; l < depth; l++ {
				dir := Ascending
				if dirs[l] {
					dir = Descending
				}
				if chain == nil {
					chain, err = NewChain(column(l), compareValues, dir)
				} else {
					chain, err = chain.Then(column(l), compareValues, dir)
				}
				if err != nil {
					return false
				}
			}
			perm := Sort(rows, chain)

			seen := append([]int(nil), perm...)
			sort.Ints(seen)
			for i, p := range seen {
				if p != i {
					return false
				}
			}
			for i := 1; i < len(perm); i++ {
				prev, cur := rows[perm[i-1]].([]any), rows[perm[i]].([]any)
				c := 0
				for l := 0; l < depth && c == 0; l++ {
					c = cmp.Compare(prev[l].(int), cur[l].(int))
					if dirs[l] {
						c = -c
					}
				}
				if c > 0 || (c == 0 && perm[i-1] > perm[i]) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
		gen.IntRange(1, 4),
		gen.SliceOfN(4, gen.Bool()),
	))
	properties.TestingRun(t)
}
