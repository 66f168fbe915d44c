// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package queryopts

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pquery/pkg/pquery/execerror"
	"github.com/cockroachdb/pquery/pkg/pquery/merge"
	"github.com/cockroachdb/pquery/pkg/pquery/opgraph"
	"github.com/cockroachdb/pquery/pkg/pquery/partition"
	"github.com/cockroachdb/pquery/pkg/pquery/sorter"
	"github.com/cockroachdb/pquery/pkg/util/leaktest"
	"github.com/stretchr/testify/require"
)

func identity(v any) any { return v }

// buildPipeline builds a linear graph from a description with one operator
// per line, source first.
func buildPipeline(t *testing.T, input string) *opgraph.Node {
	var n *opgraph.Node
	for _, line := range strings.Split(strings.TrimSpace(input), "\n") {
		fields := strings.Fields(line)
		arg := func() int {
			require.Len(t, fields, 2, "%q takes an argument", line)
			v, err := strconv.Atoi(fields[1])
			require.NoError(t, err)
			return v
		}
		switch fields[0] {
		case "start":
			n = opgraph.NewStart(make(partition.Slice[int], arg()), partition.Auto)
		case "start-forward":
			n = opgraph.NewStart(partition.Seq[int](func(func(int) bool) {}), partition.Auto)
		case "map":
			n = opgraph.NewMap(n, identity)
		case "map-indexed":
			n = opgraph.NewMapIndexed(n, func(v any, _ int64) any { return v })
		case "filter":
			n = opgraph.NewFilter(n, func(any) bool { return true })
		case "take":
			n = opgraph.NewTake(n, int64(arg()))
		case "order-by":
			chain, err := sorter.NewChain(identity, func(a, b any) int { return a.(int) - b.(int) }, sorter.Ascending)
			require.NoError(t, err)
			n = opgraph.NewOrderBy(n, chain)
		case "zip":
			other := opgraph.NewStart(make(partition.Slice[int], arg()), partition.Auto)
			n = opgraph.NewZip(n, other, func(a, b any) any { return a })
		case "as-ordered":
			n = opgraph.NewAsOrdered(n)
		case "as-unordered":
			n = opgraph.NewAsUnordered(n)
		case "dop":
			n = opgraph.NewDegreeOfParallelism(n, arg())
		case "merge":
			b := map[string]merge.Buffering{
				"not-buffered":   merge.NotBuffered,
				"auto-buffered":  merge.AutoBuffered,
				"fully-buffered": merge.FullyBuffered,
			}[fields[1]]
			n = opgraph.NewMergeOptions(n, b)
		case "force-parallelism":
			n = opgraph.NewExecutionMode(n, opgraph.ExecutionForceParallelism)
		case "cancellation":
			n = opgraph.NewCancellation(n, context.Background())
		default:
			t.Fatalf("unknown operator %q", line)
		}
	}
	return n
}

func TestResolveDataDriven(t *testing.T) {
	defer leaktest.AfterTest(t)()

	datadriven.RunTest(t, "testdata/resolve", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "resolve":
			defaultDOP, threshold := 4, 0
			if d.HasArg("default") {
				d.ScanArgs(t, "default", &defaultDOP)
			}
			if d.HasArg("threshold") {
				d.ScanArgs(t, "threshold", &threshold)
			}
			defer DefaultParallelism.Override(int64(defaultDOP))()
			defer SequentialThreshold.Override(int64(threshold))()

			opts := Resolve(context.Background(), buildPipeline(t, d.Input), d.HasArg("blocking"))
			defer opts.Release()
			return opts.String() + "\n"
		default:
			d.Fatalf(t, "unknown command %s", d.Cmd)
			return ""
		}
	})
}

func TestResolveIsDeterministic(t *testing.T) {
	defer DefaultParallelism.Override(3)()
	root := buildPipeline(t, "start 10\nmap\nas-ordered\nfilter")
	a := Resolve(context.Background(), root, true)
	defer a.Release()
	b := Resolve(context.Background(), root, true)
	defer b.Release()
	require.Equal(t, a.String(), b.String())
	require.NotSame(t, a.EarlyStop, b.EarlyStop)
}

func TestDefaultParallelismUsesGOMAXPROCS(t *testing.T) {
	opts := Resolve(context.Background(), buildPipeline(t, "start 10"), false)
	defer opts.Release()
	require.GreaterOrEqual(t, opts.PartitionCount, 1)
	require.False(t, opts.ExplicitParallelism)
}

func TestUserSignalIdentifiesSource(t *testing.T) {
	defer leaktest.AfterTest(t)()

	outer, cancelOuter := context.WithCancel(context.Background())
	defer cancelOuter()
	nested, cancelNested := context.WithCancel(context.Background())
	defer cancelNested()
	other, cancelOther := context.WithCancel(context.Background())
	defer cancelOther()

	root := opgraph.NewCancellation(
		opgraph.NewCancellation(opgraph.NewStart(partition.Slice[int]{1}, partition.Auto), nested),
		other,
	)
	opts := Resolve(outer, root, false)
	defer opts.Release()
	require.Equal(t, 2, opts.Signal.NumLinked())
	require.False(t, opts.Signal.Fired())
	require.NoError(t, opts.Signal.Err())

	cancelNested()
	select {
	case <-opts.Signal.Context().Done():
	case <-time.After(10 * time.Second):
		t.Fatal("combined signal did not fire")
	}
	err := opts.Signal.Err()
	var qce *execerror.QueryCanceledError
	require.True(t, errors.As(err, &qce))
	require.Equal(t, nested, qce.Signal)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestEarlyStop(t *testing.T) {
	e := NewEarlyStop()
	require.False(t, e.Triggered())
	e.Trigger()
	e.Trigger()
	require.True(t, e.Triggered())
	<-e.Done()
}
