// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package exec runs operator graphs. The graph is compiled into partitioned
// streams: operators that can work element by element are fused into the
// partitions of their input and run inline by the workers, while barrier
// operators drain their input with a full fan-out, merge the worker outputs
// after the join barrier and range-partition the result for the next stage.
package exec

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/pquery/pkg/pquery/execerror"
	"github.com/cockroachdb/pquery/pkg/pquery/merge"
	"github.com/cockroachdb/pquery/pkg/pquery/opgraph"
	"github.com/cockroachdb/pquery/pkg/pquery/partition"
	"github.com/cockroachdb/pquery/pkg/pquery/queryopts"
	"github.com/cockroachdb/pquery/pkg/util/log"
	"golang.org/x/sync/errgroup"
)

// Verdict is returned by worker callbacks to steer the worker.
type Verdict uint8

const (
	// Continue pulls the next element.
	Continue Verdict = iota
	// StopPartition stops the calling worker only.
	StopPartition
	// StopQuery stops every worker through the early-stop signal. It is not
	// an error.
	StopQuery
)

// Callback is called by worker w for every element reaching the end of the
// compiled graph. Callbacks of different workers run concurrently.
type Callback func(w int, idx int64, v any) Verdict

var queryIDs atomic.Uint64

// faultLogEvery rate limits the logging of worker faults.
var faultLogEvery = log.Every(time.Second)

// Executor runs one terminal call.
type Executor struct {
	ctx     context.Context
	root    *opgraph.Node
	opts    queryopts.QueryOptions
	metrics *Metrics

	faults       execerror.FaultCollector
	signalDone   <-chan struct{}
	cancelLogged atomic.Bool

	// signalSeen is set once a worker stopped because of a user signal.
	signalSeen atomic.Bool
}

func newExecutor(ctx context.Context, root *opgraph.Node, blocking bool) *Executor {
	opts := queryopts.Resolve(ctx, root, blocking)
	e := &Executor{
		ctx:        logtags.AddTag(ctx, "pq", queryIDs.Add(1)),
		root:       root,
		opts:       opts,
		metrics:    DefaultMetrics(),
		signalDone: opts.Signal.Context().Done(),
	}
	e.metrics.QueriesStarted.Inc(1)
	log.VEventf(e.ctx, 1, "starting query: %s", opts)
	if log.V(3) {
		log.VEventf(e.ctx, 3, "query plan:\n%s", opgraph.Format(root))
	}
	return e
}

func (e *Executor) release() {
	e.opts.Release()
}

// stopped returns whether workers must stop pulling elements.
func (e *Executor) stopped() bool {
	if e.opts.EarlyStop.Triggered() {
		return true
	}
	select {
	case <-e.signalDone:
		e.signalSeen.Store(true)
		return true
	default:
		return false
	}
}

// err returns the error to report at the join barrier: the faults if any
// worker faulted, otherwise a cancellation error if a worker stopped because
// of a user signal. A signal firing after every worker finished does not
// fail the query.
func (e *Executor) err() error {
	if err := e.faults.Err(); err != nil {
		return err
	}
	if !e.signalSeen.Load() {
		return nil
	}
	if err := e.opts.Signal.Err(); err != nil {
		if e.cancelLogged.CompareAndSwap(false, true) {
			e.metrics.Cancellations.Inc(1)
			log.VEventf(e.ctx, 1, "query canceled: %v", err)
		}
		return err
	}
	return nil
}

// recordFault notes a fault raised by worker w and stops its siblings.
func (e *Executor) recordFault(w int, err error) error {
	err = execerror.NewWorkerFault(w, err)
	e.faults.Add(err)
	e.opts.EarlyStop.Trigger()
	e.metrics.Faults.Inc(1)
	if faultLogEvery.ShouldLog() {
		log.Warningf(logtags.AddTag(e.ctx, "w", w), "worker fault: %v", err)
	}
	return err
}

// runInline runs fn on the calling goroutine, which acts as worker 0, and
// records a panic as a fault.
func (e *Executor) runInline(fn func()) error {
	if err := execerror.CatchRuntimeError(fn); err != nil {
		e.recordFault(0, err)
		return e.err()
	}
	return nil
}

// drain runs one worker per partition of s, calling fn for every element,
// and waits for all of them. Worker 0 runs on the calling goroutine. The
// stream is closed before returning.
func (e *Executor) drain(s *stream, fn Callback) error {
	defer s.close()
	var g errgroup.Group
	for w := 1; w < len(s.parts); w++ {
		g.Go(func() error {
			return e.runWorker(w, s.parts[w], fn)
		})
	}
	if len(s.parts) > 0 {
		_ = e.runWorker(0, s.parts[0], fn)
	}
	// Faults of every worker are in e.faults; the group only provides the
	// barrier.
	_ = g.Wait()
	return e.err()
}

func (e *Executor) runWorker(w int, p partition.Partition, fn Callback) error {
	e.metrics.WorkersSpawned.Inc(1)
	e.metrics.WorkersRunning.Inc(1)
	defer e.metrics.WorkersRunning.Dec(1)

	var n int64
	err := execerror.CatchRuntimeError(func() {
		for idx, v := range p {
			if e.stopped() {
				return
			}
			n++
			switch fn(w, idx, v) {
			case StopPartition:
				return
			case StopQuery:
				if !e.opts.EarlyStop.Triggered() {
					e.metrics.EarlyStops.Inc(1)
				}
				e.opts.EarlyStop.Trigger()
				return
			}
		}
	})
	e.metrics.ElementsProcessed.Inc(n)
	if err != nil {
		return e.recordFault(w, err)
	}
	return nil
}

// guard makes a partition stop yielding source elements once the query is
// stopped, so that fused operators stop calling user code even when they
// drop elements.
func (e *Executor) guard(p partition.Partition) partition.Partition {
	return func(yield func(int64, any) bool) {
		for idx, v := range p {
			if e.stopped() {
				return
			}
			if !yield(idx, v) {
				return
			}
		}
	}
}

// collect drains s into one buffer per worker. Each buffer is ascending in
// index.
func (e *Executor) collect(s *stream) ([][]merge.Item, error) {
	buffers := make([][]merge.Item, len(s.parts))
	err := e.drain(s, func(w int, idx int64, v any) Verdict {
		buffers[w] = append(buffers[w], merge.Item{Idx: idx, Val: v})
		return Continue
	})
	return buffers, err
}

// mergeBuffers combines worker buffers: by index if ordered, otherwise in
// worker order.
func mergeBuffers(buffers [][]merge.Item, ordered bool) []any {
	if ordered {
		return merge.Values(merge.Sorted(buffers))
	}
	return merge.Values(merge.Concat(buffers))
}

// materialize drains s and returns its elements, in index order if ordered.
func (e *Executor) materialize(s *stream, ordered bool) ([]any, error) {
	buffers, err := e.collect(s)
	if err != nil {
		return nil, err
	}
	return mergeBuffers(buffers, ordered), nil
}

// barrier runs the materializing part of a barrier operator and records its
// latency.
func (e *Executor) barrier(n *opgraph.Node, fn func() (*stream, error)) (*stream, error) {
	start := time.Now()
	s, err := fn()
	elapsed := time.Since(start)
	e.metrics.BarrierLatency.RecordValue(elapsed.Seconds())
	log.VEventf(e.ctx, 2, "%s barrier done in %s", n.Kind(), elapsed)
	return s, err
}
