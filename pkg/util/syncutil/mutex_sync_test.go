// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package syncutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMutexAssertHeld(t *testing.T) {
	if DeadlockEnabled {
		t.Skip("AssertHeld is a no-op under the deadlock detector")
	}
	var m Mutex
	require.Panics(t, m.AssertHeld)
	m.Lock()
	require.NotPanics(t, m.AssertHeld)
	m.Unlock()
	require.Panics(t, m.AssertHeld)
}

func TestMutexExclusion(t *testing.T) {
	var (
		m       Mutex
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Lock()
				counter++
				m.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 8000, counter)
}
