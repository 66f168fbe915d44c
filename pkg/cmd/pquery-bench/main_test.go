// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/pquery/pkg/pquery"
	"github.com/cockroachdb/pquery/pkg/pquery/partition"
	"github.com/cockroachdb/pquery/pkg/settings"
	"github.com/cockroachdb/pquery/pkg/util/leaktest"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := makePQueryBenchCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestWorkloadsAgreeAcrossParallelism(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	data := generate(5000, 7)
	for _, wl := range workloads {
		t.Run(wl.name, func(t *testing.T) {
			expected, err := wl.prepare(data, 1).run(ctx)
			require.NoError(t, err)
			for _, part := range []pquery.Partitioning{
				pquery.RangePartitioning, pquery.ChunkPartitioning, pquery.StripPartitioning,
			} {
				for _, dop := range []int{2, 3, 8} {
					res, err := wl.prepare(data, dop, pquery.WithPartitioning(part)).run(ctx)
					require.NoError(t, err)
					require.Equal(t, expected, res, "partitioning=%s dop=%d", part, dop)
				}
			}
		})
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	require.Equal(t, generate(100, 3), generate(100, 3))
	require.NotEqual(t, generate(100, 3), generate(100, 4))
	require.Empty(t, generate(0, 1))
}

func TestRunCommand(t *testing.T) {
	defer leaktest.AfterTest(t)()
	out, err := execute(t, "run", "--workloads=sum,distinct", "--size=2k", "--dop=1,4",
		"--runs=2", "--partitioning=strip", "--show-metrics")
	require.NoError(t, err)
	require.Contains(t, out, "throughput")
	require.Contains(t, out, "median")
	require.Contains(t, out, "sum")
	require.Contains(t, out, "distinct=")
	require.Contains(t, out, "1.00x")
	require.Contains(t, out, "pquery.queries.started")
}

func TestRunCommandErrors(t *testing.T) {
	for _, args := range [][]string{
		{"run", "--workloads=nope"},
		{"run", "--partitioning=diagonal"},
		{"run", "--dop=0"},
		{"run", "--runs=0"},
		{"run", "--size=lots"},
		{"explain"},
		{"explain", "nope"},
	} {
		t.Run(fmt.Sprint(args), func(t *testing.T) {
			_, err := execute(t, args...)
			require.Error(t, err)
		})
	}
}

func TestExplainCommand(t *testing.T) {
	out, err := execute(t, "explain", "join", "--dop=3", "--partitioning=range")
	require.NoError(t, err)
	require.Contains(t, out, "join: hash join")
	require.Contains(t, out, "degree-of-parallelism")
	require.Contains(t, out, "join")
	require.Contains(t, out, "range")
}

func TestSettingsFromConfigFile(t *testing.T) {
	defer settings.Reset()
	path := filepath.Join(t.TempDir(), "pquery.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pquery:\n  chunk_size: 48\n"), 0644))

	out, err := execute(t, "settings", "--config", path)
	require.NoError(t, err)
	require.Equal(t, int64(48), partition.ChunkSize.Get())
	require.Contains(t, out, "pquery.chunk_size")
	require.Contains(t, out, "48")

	_, err = execute(t, "settings", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("pquery:\n  chunk_size: 0\n"), 0644))
	_, err = execute(t, "settings", "--config", path)
	require.Error(t, err)
}

func TestSettingsRoundTripThroughYAML(t *testing.T) {
	defer settings.Reset()
	restore := partition.ChunkSize.Override(96)
	out, err := execute(t, "settings", "--format=yaml")
	require.NoError(t, err)
	require.Contains(t, out, "chunk_size: 96")
	restore()

	path := filepath.Join(t.TempDir(), "dump.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0644))
	require.Equal(t, int64(16), partition.ChunkSize.Get())
	_, err = execute(t, "settings", "--config", path)
	require.NoError(t, err)
	require.Equal(t, int64(96), partition.ChunkSize.Get())

	_, err = execute(t, "settings", "--format=xml")
	require.Error(t, err)
}

func TestMeasurementSpread(t *testing.T) {
	m := measurement{runs: []float64{3e6, 1e6, 2e6}}
	median, stddev, err := m.spread()
	require.NoError(t, err)
	require.Equal(t, 2*time.Millisecond, median)
	require.InDelta(t, 816497, float64(stddev), 2)

	_, _, err = measurement{}.spread()
	require.Error(t, err)
}

func TestServeMetrics(t *testing.T) {
	ctx := context.Background()
	addr, stop, err := serveMetrics(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer stop()

	_, err = pquery.Range(0, 100).Count(ctx)
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "pquery_queries_started")
}
