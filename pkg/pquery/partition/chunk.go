// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package partition

import (
	"iter"

	"github.com/cockroachdb/pquery/pkg/util/ring"
	"github.com/cockroachdb/pquery/pkg/util/syncutil"
)

// chunkCursor is the shared position in a forward-only source. Claiming a
// chunk is the only point of contention between chunk partitions.
type chunkCursor struct {
	chunkSize int

	mu struct {
		syncutil.Mutex
		next func() (any, bool)
		stop func()
		// pos is the global index of the next element to be claimed.
		pos  int64
		done bool
	}
}

// claim moves up to chunkSize elements from the source into buf. It returns
// the global index of the first claimed element and how many were claimed;
// zero means the source is exhausted.
func (c *chunkCursor) claim(buf *ring.Buffer[any]) (start int64, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.claimLocked(buf)
}

func (c *chunkCursor) claimLocked(buf *ring.Buffer[any]) (start int64, n int) {
	c.mu.AssertHeld()
	start = c.mu.pos
	for n < c.chunkSize && !c.mu.done {
		v, ok := c.mu.next()
		if !ok {
			c.mu.done = true
			break
		}
		buf.AddLast(v)
		n++
	}
	c.mu.pos += int64(n)
	return start, n
}

func (c *chunkCursor) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mu.done = true
	c.mu.stop()
}

// NewChunk creates n partitions that dynamically claim chunks of chunkSize
// elements from src. Each claimed element keeps the global index it had in
// src, so chunk partitions support ordered merging like range partitions do.
func NewChunk(src ForwardOnly, n int, chunkSize int) *Set {
	if chunkSize < 1 {
		chunkSize = 1
	}
	c := &chunkCursor{chunkSize: chunkSize}
	c.mu.next, c.mu.stop = iter.Pull(src.All())
	parts := make([]Partition, n)
	for i := range parts {
		parts[i] = func(yield func(int64, any) bool) {
			buf := ring.MakeBuffer[any](chunkSize)
			for {
				start, claimed := c.claim(&buf)
				if claimed == 0 {
					return
				}
				for j := 0; j < claimed; j++ {
					if !yield(start+int64(j), buf.RemoveFirst()) {
						return
					}
				}
			}
		}
	}
	return &Set{Partitions: parts, Kind: Chunk, closeFn: c.close}
}
