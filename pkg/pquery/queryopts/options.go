// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package queryopts resolves the execution options of a query from its
// operator graph. Resolution happens once per terminal call.
package queryopts

import (
	"context"
	"fmt"
	"runtime"

	"github.com/cockroachdb/pquery/pkg/pquery/merge"
	"github.com/cockroachdb/pquery/pkg/pquery/opgraph"
	"github.com/cockroachdb/pquery/pkg/pquery/partition"
	"github.com/cockroachdb/pquery/pkg/settings"
)

// DefaultParallelism overrides the default number of partitions.
var DefaultParallelism = settings.RegisterIntSetting(
	"pquery.default_parallelism",
	"number of partitions of queries without an explicit degree of parallelism; 0 uses GOMAXPROCS",
	0,
	settings.NonNegativeInt,
)

// SequentialThreshold is the source length under which queries in the
// default execution mode run sequentially.
var SequentialThreshold = settings.RegisterIntSetting(
	"pquery.sequential_threshold",
	"queries whose sources are known to hold fewer elements run on a single partition; 0 disables",
	0,
	settings.NonNegativeInt,
)

// QueryOptions are the execution options of one terminal call.
type QueryOptions struct {
	// PartitionCount is the number of partitions, and of workers.
	PartitionCount int
	// Signal fires when the user cancels the query.
	Signal *UserSignal
	// EarlyStop stops workers without an error.
	EarlyStop *EarlyStop
	// Buffering is the resolved merge buffering; never merge.Default.
	Buffering merge.Buffering
	// Ordered is whether the order guard is active at the root.
	Ordered bool
	// Mode is the resolved execution mode.
	Mode opgraph.ExecutionMode
	// Blocking is whether the terminal call drains the query on the calling
	// goroutine.
	Blocking bool
	// ExplicitParallelism is whether PartitionCount comes from a marker.
	ExplicitParallelism bool
	// Sequential is whether the query was degraded to a single partition
	// because of SequentialThreshold.
	Sequential bool
}

func (o QueryOptions) String() string {
	return fmt.Sprintf("partitions=%d ordered=%t merge=%s mode=%s signals=%d sequential=%t",
		o.PartitionCount, o.Ordered, o.Buffering, o.Mode, o.Signal.NumLinked(), o.Sequential)
}

// Release releases the resources held by the options.
func (o QueryOptions) Release() {
	o.Signal.Release()
}

// Resolve walks the graph rooted at root once and computes its options.
// Markers closer to the root override markers further upstream; signals of
// every CancellationSignal marker are linked. blocking adds one partition to
// the default partition count, for the goroutine that drains the query.
// Release must be called on the result.
func Resolve(ctx context.Context, root *opgraph.Node, blocking bool) QueryOptions {
	var (
		dop       int
		buffering = merge.Default
		mode      opgraph.ExecutionMode
		modeSet   bool
		linked    []context.Context
		sources   []*opgraph.Node
	)
	var v opgraph.Visitor
	v.On(func(n *opgraph.Node) bool {
		if dop == 0 {
			dop = n.Spec().(opgraph.DegreeOfParallelismSpec).N
		}
		return true
	}, opgraph.DegreeOfParallelism)
	v.On(func(n *opgraph.Node) bool {
		if buffering == merge.Default {
			buffering = n.Spec().(opgraph.MergeOptionsSpec).Buffering
		}
		return true
	}, opgraph.MergeOptionsMarker)
	v.On(func(n *opgraph.Node) bool {
		if !modeSet {
			mode, modeSet = n.Spec().(opgraph.ExecutionModeSpec).Mode, true
		}
		return true
	}, opgraph.ExecutionModeMarker)
	v.On(func(n *opgraph.Node) bool {
		linked = append(linked, n.Spec().(opgraph.CancellationSpec).Signal)
		return true
	}, opgraph.CancellationSignal)
	v.CollectSources(&sources)
	opgraph.Walk(root, &v)

	opts := QueryOptions{
		PartitionCount:      dop,
		Signal:              newUserSignal(ctx, linked),
		EarlyStop:           NewEarlyStop(),
		Buffering:           buffering,
		Ordered:             root.Ordered(),
		Mode:                mode,
		Blocking:            blocking,
		ExplicitParallelism: dop != 0,
	}
	if opts.Buffering == merge.Default {
		opts.Buffering = merge.AutoBuffered
	}
	if !opts.ExplicitParallelism {
		opts.PartitionCount = defaultPartitionCount(blocking)
	}
	if mode == opgraph.ExecutionDefault && opts.PartitionCount > 1 {
		if threshold := SequentialThreshold.Get(); threshold > 0 {
			if total, ok := knownLength(sources); ok && int64(total) < threshold {
				opts.PartitionCount = 1
				opts.Sequential = true
			}
		}
	}
	return opts
}

func defaultPartitionCount(blocking bool) int {
	n := int(DefaultParallelism.Get())
	if n == 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if blocking {
		n++
	}
	return min(n, opgraph.MaxDegreeOfParallelism)
}

// knownLength returns the total length of the sources, if all of them know
// it.
func knownLength(sources []*opgraph.Node) (int, bool) {
	total := 0
	for _, s := range sources {
		l, ok := partition.KnownLen(s.Spec().(opgraph.StartSpec).Source)
		if !ok {
			return 0, false
		}
		total += l
	}
	return total, true
}
