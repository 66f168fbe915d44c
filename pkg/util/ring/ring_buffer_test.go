// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferFIFO(t *testing.T) {
	var b Buffer[int]
	require.Equal(t, 0, b.Len())
	require.Panics(t, func() { b.RemoveFirst() })

	for i := 0; i < 10; i++ {
		b.AddLast(i)
	}
	require.Equal(t, 10, b.Len())
	require.Equal(t, 0, b.GetFirst())
	for i := 0; i < 5; i++ {
		require.Equal(t, i, b.RemoveFirst())
	}
	// Wrap around the end of the underlying slice before growing again.
	for i := 10; i < 20; i++ {
		b.AddLast(i)
	}
	require.Equal(t, 15, b.Len())
	for i := 5; i < 20; i++ {
		require.Equal(t, i, b.RemoveFirst())
	}
	require.Equal(t, 0, b.Len())
}

func TestBufferReset(t *testing.T) {
	b := MakeBuffer[string](4)
	require.Equal(t, 4, b.Cap())
	b.AddLast("a")
	b.AddLast("b")
	b.Reset()
	require.Equal(t, 0, b.Len())
	require.Equal(t, 4, b.Cap())
	b.AddLast("c")
	require.Equal(t, "c", b.GetFirst())
}
