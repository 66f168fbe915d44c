// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package execerror

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestArgumentError(t *testing.T) {
	err := NewArgumentError("Map", "fn", "must not be nil")
	require.True(t, errors.Is(err, ErrInvalidArgument))
	var ae *ArgumentError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, "Map", ae.Op)
	require.EqualError(t, err, "Map: invalid argument fn: must not be nil")
}

func TestQueryCanceledError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := error(NewQueryCanceledError(ctx))
	require.True(t, errors.Is(err, context.Canceled))
	require.True(t, IsQueryCanceled(errors.Wrap(err, "outer")))

	var qce *QueryCanceledError
	require.True(t, errors.As(err, &qce))
	require.Equal(t, ctx, qce.Signal)

	cause := errors.New("shutting down")
	ctx2, cancel2 := context.WithCancelCause(context.Background())
	cancel2(cause)
	require.True(t, errors.Is(NewQueryCanceledError(ctx2), cause))
}

func TestCatchRuntimeError(t *testing.T) {
	require.NoError(t, CatchRuntimeError(func() {}))

	boom := errors.New("boom")
	err := CatchRuntimeError(func() { panic(boom) })
	require.True(t, errors.Is(err, boom))

	err = CatchRuntimeError(func() { panic("plain string") })
	require.True(t, errors.Is(err, ErrPanic))
	require.Contains(t, err.Error(), "plain string")

	err = CatchRuntimeError(func() {
		var s []int
		_ = s[3]
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "index out of range")
}

func TestFaultCollector(t *testing.T) {
	var c FaultCollector
	require.NoError(t, c.Err())
	require.Nil(t, Faults(nil))

	first := errors.New("first")
	second := errors.New("second")
	require.True(t, c.Add(NewWorkerFault(2, first)))
	require.False(t, c.Add(NewWorkerFault(0, second)))

	err := c.Err()
	require.True(t, errors.Is(err, first))
	require.EqualError(t, err, "worker 2: first (and 1 more faults)")
	faults := Faults(err)
	require.Len(t, faults, 2)
	require.True(t, errors.Is(faults[1], second))

	var wf *WorkerFault
	require.True(t, errors.As(err, &wf))
	require.Equal(t, 2, wf.Worker)
}

func TestFaultCollectorConcurrent(t *testing.T) {
	var c FaultCollector
	var wg sync.WaitGroup
	firsts := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			firsts <- c.Add(NewWorkerFault(i, errors.Newf("fault %d", i)))
		}(i)
	}
	wg.Wait()
	close(firsts)
	n := 0
	for f := range firsts {
		if f {
			n++
		}
	}
	require.Equal(t, 1, n)
	require.Len(t, Faults(c.Err()), 8)
}
