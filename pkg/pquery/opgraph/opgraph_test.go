// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opgraph

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pquery/pkg/pquery/execerror"
	"github.com/cockroachdb/pquery/pkg/pquery/merge"
	"github.com/cockroachdb/pquery/pkg/pquery/partition"
	"github.com/cockroachdb/pquery/pkg/pquery/sorter"
	"github.com/stretchr/testify/require"
)

func start() *Node {
	return NewStart(partition.Slice[int]{1, 2, 3}, partition.Auto)
}

func identity(v any) any { return v }

func requireArgPanic(t *testing.T, fn func()) {
	t.Helper()
	err := execerror.CatchRuntimeError(fn)
	require.Error(t, err)
	require.True(t, errors.Is(err, execerror.ErrInvalidArgument), "%v", err)
}

func TestConstructionValidates(t *testing.T) {
	s := start()
	requireArgPanic(t, func() { NewStart(nil, partition.Auto) })
	requireArgPanic(t, func() { NewStart(42, partition.Auto) })
	requireArgPanic(t, func() { NewMap(nil, identity) })
	requireArgPanic(t, func() { NewMap(s, nil) })
	requireArgPanic(t, func() { NewFilter(s, nil) })
	requireArgPanic(t, func() { NewGroupBy(s, GroupBySpec{Key: identity}) })
	requireArgPanic(t, func() { NewJoin(s, nil, JoinSpec{}) })
	requireArgPanic(t, func() { NewOrderBy(s, nil) })
	requireArgPanic(t, func() { NewDistinct(s, &Equality{Equal: func(a, b any) bool { return a == b }}) })
	requireArgPanic(t, func() { NewSetOp(Distinct, s, s, nil) })
	requireArgPanic(t, func() { NewCancellation(s, nil) })
	requireArgPanic(t, func() { NewMergeOptions(s, merge.Buffering(17)) })
	for _, n := range []int{-1, 0, 64, 1000} {
		requireArgPanic(t, func() { NewDegreeOfParallelism(s, n) })
	}
	for _, n := range []int{1, 32, 63} {
		require.Equal(t, n, NewDegreeOfParallelism(s, n).Spec().(DegreeOfParallelismSpec).N)
	}
}

func TestConstructionIsPersistent(t *testing.T) {
	s := start()
	a := NewMap(s, identity)
	b := NewFilter(s, func(any) bool { return true })
	require.Same(t, s, a.Input(0))
	require.Same(t, s, b.Input(0))
	require.NotEqual(t, a.ID(), b.ID())
	require.Equal(t, 0, s.NumInputs())
}

func TestOrderedFlag(t *testing.T) {
	s := start()
	chain, err := sorter.NewChain(identity, func(a, b any) int { return a.(int) - b.(int) }, sorter.Ascending)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		node     *Node
		expected bool
	}{
		{"start", s, false},
		{"map", NewMap(s, identity), false},
		{"as-ordered", NewAsOrdered(s), true},
		{"map over as-ordered", NewMap(NewAsOrdered(s), identity), true},
		{"as-unordered relaxes", NewMap(NewAsUnordered(NewAsOrdered(s)), identity), false},
		{"order-by", NewOrderBy(s, chain), true},
		{"zip", NewZip(s, s, func(a, b any) any { return a }), true},
		{"indexed map", NewMapIndexed(s, func(v any, _ int64) any { return v }), true},
		{"indexed take-while", NewTakeWhileIndexed(s, func(any, int64) bool { return true }), true},
		{"take-while", NewTakeWhile(s, func(any) bool { return true }), false},
		{"concat inherits from either input", NewConcat(s, NewAsOrdered(s)), true},
		{"reverse", NewReverse(s), true},
		{"filter over order-by", NewFilter(NewOrderBy(s, chain), func(any) bool { return true }), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.node.Ordered())
		})
	}
}

func TestWalk(t *testing.T) {
	s := start()
	shared := NewMap(s, identity)
	root := NewDegreeOfParallelism(NewConcat(shared, NewFilter(shared, func(any) bool { return true })), 4)

	var kinds []Kind
	var v Visitor
	v.Default = func(n *Node) bool {
		kinds = append(kinds, n.Kind())
		return true
	}
	Walk(root, &v)
	require.Equal(t, []Kind{DegreeOfParallelism, Concat, Map, Start, Filter}, kinds)

	var sources []*Node
	var sv Visitor
	Walk(root, sv.CollectSources(&sources))
	require.Equal(t, []*Node{s}, sources)
	other := start()
	sources = nil
	Walk(NewConcat(root, other), &sv)
	require.Equal(t, []*Node{s, other}, sources)

	// An entry for a kind takes precedence over the default, and can stop
	// the descent.
	kinds = nil
	v.On(func(n *Node) bool {
		kinds = append(kinds, n.Kind())
		return false
	}, Concat)
	Walk(root, &v)
	require.Equal(t, []Kind{DegreeOfParallelism, Concat}, kinds)
}

func TestFormat(t *testing.T) {
	s := NewStart(partition.Slice[int]{1, 2, 3}, partition.Chunk)
	root := NewTake(NewAsOrdered(NewCancellation(NewFilter(s, func(any) bool { return true }), context.Background())), 2)
	require.Equal(t, `head (2) [ordered]
  as-ordered [ordered]
    cancellation
      filter
        start (len=3, chunk)
`, Format(root))
}

func TestKindNames(t *testing.T) {
	for k := Kind(0); k < NumKinds; k++ {
		require.NotEmpty(t, k.String(), "kind %d has no name", k)
	}
	require.True(t, DegreeOfParallelism.IsMarker())
	require.False(t, Map.IsMarker())
}
