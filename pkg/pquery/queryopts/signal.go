// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package queryopts

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/pquery/pkg/pquery/execerror"
)

// UserSignal is the combination of every user cancellation signal linked
// into a query: the context of the terminal call and the signals of all
// WithCancellation markers. It fires when any of them does.
type UserSignal struct {
	ctx     context.Context
	cancel  context.CancelFunc
	sources []context.Context
	stops   []func() bool
}

func newUserSignal(ctx context.Context, linked []context.Context) *UserSignal {
	s := &UserSignal{sources: append([]context.Context{ctx}, linked...)}
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, l := range linked {
		s.stops = append(s.stops, context.AfterFunc(l, s.cancel))
	}
	return s
}

// Context returns a context that is done once any of the signals fires. It
// carries the values of the terminal call's context.
func (s *UserSignal) Context() context.Context { return s.ctx }

// Fired returns whether any of the signals fired.
func (s *UserSignal) Fired() bool { return s.ctx.Err() != nil }

// Err returns nil if no signal fired, or a QueryCanceledError naming the
// first source signal (in linking order) that is done.
func (s *UserSignal) Err() error {
	if !s.Fired() {
		return nil
	}
	for _, src := range s.sources {
		if src.Err() != nil {
			return execerror.NewQueryCanceledError(src)
		}
	}
	// Only reachable after Release.
	return execerror.NewQueryCanceledError(s.ctx)
}

// NumLinked returns the number of signals linked through WithCancellation.
func (s *UserSignal) NumLinked() int { return len(s.sources) - 1 }

// Release detaches the signal from its sources. It must be called once the
// query is done.
func (s *UserSignal) Release() {
	for _, stop := range s.stops {
		stop()
	}
	s.cancel()
}

// EarlyStop is the internal signal used to stop all workers of a query
// without reporting an error: short-circuiting terminals trigger it once
// they know their answer, and the executor triggers it when a worker
// faults.
type EarlyStop struct {
	triggered atomic.Bool
	once      sync.Once
	done      chan struct{}
}

// NewEarlyStop creates an untriggered EarlyStop.
func NewEarlyStop() *EarlyStop {
	return &EarlyStop{done: make(chan struct{})}
}

// Trigger fires the signal. It is idempotent.
func (e *EarlyStop) Trigger() {
	e.once.Do(func() {
		e.triggered.Store(true)
		close(e.done)
	})
}

// Triggered returns whether the signal fired.
func (e *EarlyStop) Triggered() bool { return e.triggered.Load() }

// Done returns a channel that is closed once the signal fires.
func (e *EarlyStop) Done() <-chan struct{} { return e.done }
