// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"context"
	"iter"
	"math"
	"sync/atomic"

	"github.com/cockroachdb/pquery/pkg/pquery/execerror"
	"github.com/cockroachdb/pquery/pkg/pquery/merge"
	"github.com/cockroachdb/pquery/pkg/pquery/opgraph"
)

// JoinHandle is returned by RunAndCallback.
type JoinHandle struct {
	done chan struct{}
	err  error
}

// Done returns a channel closed once the query finished.
func (h *JoinHandle) Done() <-chan struct{} { return h.done }

// Join waits for the query to finish and returns its faults or cancellation
// error.
func (h *JoinHandle) Join() error {
	<-h.done
	return h.err
}

// RunAndCallback starts running the graph rooted at root and returns
// immediately. fn is called for every element, concurrently from the
// workers.
func RunAndCallback(ctx context.Context, root *opgraph.Node, fn Callback) *JoinHandle {
	h := &JoinHandle{done: make(chan struct{})}
	e := newExecutor(ctx, root, false /* blocking */)
	go func() {
		defer close(h.done)
		defer e.release()
		s, err := e.compile(root)
		if err == nil {
			err = e.drain(s, fn)
		}
		h.err = err
	}()
	return h
}

// RunBlocking runs the graph rooted at root to completion on the calling
// goroutine and its workers, calling fn for every element.
func RunBlocking(ctx context.Context, root *opgraph.Node, fn Callback) error {
	e := newExecutor(ctx, root, true /* blocking */)
	defer e.release()
	s, err := e.compile(root)
	if err != nil {
		return err
	}
	return e.drain(s, fn)
}

// AggregateSpec describes a three-phase aggregation.
type AggregateSpec struct {
	// Seed creates the initial accumulator of a worker. If nil, every worker
	// uses its first element as its accumulator.
	Seed func() any
	// Accumulate folds an element into a worker's accumulator.
	Accumulate func(acc, v any) any
	// Combine folds two accumulators.
	Combine func(a, b any) any
}

// RunAggregate runs a three-phase aggregation: every worker folds its
// partition into a private accumulator, then the accumulators are combined
// in worker order after the join barrier. Without a seed, an empty query
// results in ErrNoElements.
func RunAggregate(ctx context.Context, root *opgraph.Node, spec AggregateSpec) (any, error) {
	e := newExecutor(ctx, root, true /* blocking */)
	defer e.release()
	s, err := e.compile(root)
	if err != nil {
		return nil, err
	}
	accs := make([]any, len(s.parts))
	seeded := make([]bool, len(s.parts))
	if spec.Seed != nil {
		if err := e.runInline(func() {
			for w := range accs {
				accs[w], seeded[w] = spec.Seed(), true
			}
		}); err != nil {
			s.close()
			return nil, err
		}
	}
	err = e.drain(s, func(w int, _ int64, v any) Verdict {
		if !seeded[w] {
			accs[w], seeded[w] = v, true
			return Continue
		}
		accs[w] = spec.Accumulate(accs[w], v)
		return Continue
	})
	if err != nil {
		return nil, err
	}
	var res any
	found := false
	err = e.runInline(func() {
		for w, acc := range accs {
			if !seeded[w] {
				continue
			}
			if !found {
				res, found = acc, true
				continue
			}
			res = spec.Combine(res, acc)
		}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, execerror.ErrNoElements
	}
	return res, nil
}

// Collect runs the graph and returns its elements, in index order if the
// order guard is active and in worker order otherwise.
func Collect(ctx context.Context, root *opgraph.Node) ([]any, error) {
	e := newExecutor(ctx, root, true /* blocking */)
	defer e.release()
	s, err := e.compile(root)
	if err != nil {
		return nil, err
	}
	return e.materialize(s, e.opts.Ordered)
}

// RunFirst returns the first element satisfying pred, or any element if pred
// is nil. Under the order guard, first means smallest index: each worker
// stops at its first match or once it is past the best match found so far.
// Without the guard the first match found stops the whole query.
func RunFirst(ctx context.Context, root *opgraph.Node, pred func(any) bool) (any, bool, error) {
	e := newExecutor(ctx, root, true /* blocking */)
	defer e.release()
	s, err := e.compile(root)
	if err != nil {
		return nil, false, err
	}
	found := make([]*merge.Item, len(s.parts))
	var best atomic.Int64
	best.Store(math.MaxInt64)
	ordered := e.opts.Ordered
	err = e.drain(s, func(w int, idx int64, v any) Verdict {
		if ordered && idx > best.Load() {
			return StopPartition
		}
		if pred != nil && !pred(v) {
			return Continue
		}
		if !ordered {
			if best.CompareAndSwap(math.MaxInt64, idx) {
				found[w] = &merge.Item{Idx: idx, Val: v}
			}
			return StopQuery
		}
		found[w] = &merge.Item{Idx: idx, Val: v}
		storeMin(&best, idx)
		return StopPartition
	})
	if err != nil {
		return nil, false, err
	}
	var res *merge.Item
	for _, it := range found {
		if it != nil && (res == nil || it.Idx < res.Idx) {
			res = it
		}
	}
	if res == nil {
		return nil, false, nil
	}
	return res.Val, true, nil
}

// RunSingle returns the only element satisfying pred (every element if pred
// is nil). count is 0 if there is none, 1 if there is exactly one, and 2 if
// there are several; matches are counted across all workers, and the query
// stops at the second one.
func RunSingle(
	ctx context.Context, root *opgraph.Node, pred func(any) bool,
) (res any, count int, err error) {
	e := newExecutor(ctx, root, true /* blocking */)
	defer e.release()
	s, err := e.compile(root)
	if err != nil {
		return nil, 0, err
	}
	var matches atomic.Int64
	found := make([]any, len(s.parts))
	hit := make([]bool, len(s.parts))
	err = e.drain(s, func(w int, _ int64, v any) Verdict {
		if pred != nil && !pred(v) {
			return Continue
		}
		if matches.Add(1) > 1 {
			return StopQuery
		}
		found[w], hit[w] = v, true
		return Continue
	})
	if err != nil {
		return nil, 0, err
	}
	switch n := matches.Load(); {
	case n == 0:
		return nil, 0, nil
	case n > 1:
		return nil, 2, nil
	}
	for w := range found {
		if hit[w] {
			return found[w], 1, nil
		}
	}
	return nil, 0, nil
}

// RunAny returns whether any element satisfies pred. The first match stops
// the query.
func RunAny(ctx context.Context, root *opgraph.Node, pred func(any) bool) (bool, error) {
	e := newExecutor(ctx, root, true /* blocking */)
	defer e.release()
	s, err := e.compile(root)
	if err != nil {
		return false, err
	}
	var found atomic.Bool
	err = e.drain(s, func(_ int, _ int64, v any) Verdict {
		if pred(v) {
			found.Store(true)
			return StopQuery
		}
		return Continue
	})
	if err != nil {
		return false, err
	}
	return found.Load(), nil
}

// Stream runs the graph and yields its elements to the consumer as the
// workers produce them: by index if the order guard is active, in arrival
// order otherwise. A failed query yields a single final pair carrying the
// error. Stopping the iteration early stops the workers.
func Stream(ctx context.Context, root *opgraph.Node) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		e := newExecutor(ctx, root, false /* blocking */)
		defer e.release()
		s, err := e.compile(root)
		if err != nil {
			yield(nil, err)
			return
		}
		if e.opts.Buffering == merge.FullyBuffered {
			buffers, err := e.collect(s)
			if err != nil {
				yield(nil, err)
				return
			}
			seq := merge.Concat(buffers)
			if e.opts.Ordered {
				seq = merge.Sorted(buffers)
			}
			for it := range seq {
				if !yield(it.Val, nil) {
					return
				}
			}
			return
		}
		e.stream(s, yield)
	}
}

// stream drains s on a background goroutine and merges the worker outputs
// through channels.
func (e *Executor) stream(s *stream, yield func(any, error) bool) {
	capacity := e.opts.Buffering.ChannelCap()
	chans := make([]chan merge.Item, len(s.parts))
	if e.opts.Ordered {
		// The merge waits for the head of every channel, so each channel is
		// closed as soon as its worker stops pulling.
		for w := range chans {
			c := make(chan merge.Item, capacity)
			chans[w] = c
			p := s.parts[w]
			s.parts[w] = func(yield func(int64, any) bool) {
				defer close(c)
				p(yield)
			}
		}
	} else {
		shared := make(chan merge.Item, capacity*len(chans))
		for w := range chans {
			chans[w] = shared
		}
	}
	done := make(chan error, 1)
	go func() {
		err := e.drain(s, func(w int, idx int64, v any) Verdict {
			select {
			case chans[w] <- merge.Item{Idx: idx, Val: v}:
				return Continue
			case <-e.opts.EarlyStop.Done():
				return StopPartition
			case <-e.signalDone:
				e.signalSeen.Store(true)
				return StopPartition
			}
		})
		if !e.opts.Ordered && len(chans) > 0 {
			close(chans[0])
		}
		done <- err
	}()
	finished := false
	defer func() {
		if !finished {
			// The consumer stopped early or panicked.
			e.opts.EarlyStop.Trigger()
			<-done
		}
	}()

	var seq iter.Seq[merge.Item]
	if e.opts.Ordered {
		seq = merge.Channels(chans)
	} else {
		seq = func(yield func(merge.Item) bool) {
			if len(chans) == 0 {
				return
			}
			for it := range chans[0] {
				if !yield(it) {
					return
				}
			}
		}
	}
	for it := range seq {
		if !yield(it.Val, nil) {
			return
		}
	}
	finished = true
	if err := <-done; err != nil {
		yield(nil, err)
	}
}
