// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

//go:build !deadlock

package syncutil

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = false

// A Mutex is a mutual exclusion lock. Unlike sync.Mutex it remembers whether
// it is currently held, which lets lockedXXX helpers assert their
// precondition.
type Mutex struct {
	mu   sync.Mutex
	held atomic.Bool
}

// Lock locks m.
func (m *Mutex) Lock() {
	m.mu.Lock()
	m.held.Store(true)
}

// Unlock unlocks m.
func (m *Mutex) Unlock() {
	m.held.Store(false)
	m.mu.Unlock()
}

// AssertHeld panics if the mutex is not locked.
//
// Note that we do not require the lock to be held by any particular
// goroutine, just that some goroutine holds the lock.
func (m *Mutex) AssertHeld() {
	if !m.held.Load() {
		panic(errors.AssertionFailedf("mutex is not held"))
	}
}
