// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package leaktest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingTB struct {
	errs []string
}

func (r *recordingTB) Errorf(format string, args ...interface{}) {
	r.errs = append(r.errs, fmt.Sprintf(format, args...))
}
func (r *recordingTB) Failed() bool { return false }
func (r *recordingTB) Helper()      {}

func TestAfterTestNoLeak(t *testing.T) {
	var tb recordingTB
	check := AfterTest(&tb)
	done := make(chan struct{})
	go func() { close(done) }()
	<-done
	check()
	require.Empty(t, tb.errs)
}

func TestAfterTestReportsLeak(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the leak deadline")
	}
	var tb recordingTB
	check := AfterTest(&tb)
	stop := make(chan struct{})
	go func() { <-stop }()
	check()
	close(stop)
	require.NotEmpty(t, tb.errs)
	// Let the goroutine exit before the next test snapshots.
	time.Sleep(10 * time.Millisecond)
}
