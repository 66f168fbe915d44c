// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// pquery-bench times parallel query workloads across degrees of
// parallelism.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pquery/pkg/pquery"
	"github.com/cockroachdb/pquery/pkg/settings"
	"github.com/cockroachdb/pquery/pkg/util/humanizeutil"
	"github.com/cockroachdb/pquery/pkg/util/log"
	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := makePQueryBenchCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %+v\n", err)
		os.Exit(1)
	}
}

type rootConfig struct {
	configFile string
	verbosity  int32
}

func makePQueryBenchCommand() *cobra.Command {
	var cfg rootConfig
	command := &cobra.Command{
		Use:   "pquery-bench [command] (flags)",
		Short: "pquery-bench times parallel query workloads.",
		Long: `pquery-bench times parallel query workloads over generated integer data.

Engine settings are read from PQUERY_* environment variables, e.g.
PQUERY_CHUNK_SIZE=64, or from the file passed with --config.

Typical usage:
    pquery-bench run --workloads=sum,sort --size=10M --dop=1,2,4,8
    pquery-bench explain join
    pquery-bench settings
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadSettings(cfg)
		},
	}
	command.PersistentFlags().StringVar(&cfg.configFile, "config", "",
		"file to read engine settings from (yaml, toml or json)")
	command.PersistentFlags().Int32VarP(&cfg.verbosity, "verbosity", "v", -1,
		"log verbosity; overrides pquery.log.verbosity when set")

	command.AddCommand(makeRunCommand())
	command.AddCommand(makeExplainCommand())
	command.AddCommand(makeSettingsCommand())
	return command
}

func loadSettings(cfg rootConfig) error {
	v := settings.NewViper()
	if cfg.configFile != "" {
		v.SetConfigFile(cfg.configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading %s", cfg.configFile)
		}
	}
	if err := settings.LoadFromViper(v); err != nil {
		return err
	}
	if cfg.verbosity >= 0 {
		log.SetVerbosity(cfg.verbosity)
	}
	return nil
}

type runConfig struct {
	workloads    []string
	size         int64
	dops         []int
	runs         int
	seed         uint64
	partitioning string
	metricsAddr  string
	showMetrics  bool
}

func defaultRunConfig() runConfig {
	return runConfig{
		workloads:    workloadNames(),
		size:         1_000_000,
		dops:         []int{1, 2, 4, 8},
		runs:         3,
		seed:         1,
		partitioning: pquery.AutoPartitioning.String(),
	}
}

func makeRunCommand() *cobra.Command {
	config := defaultRunConfig()
	command := &cobra.Command{
		Use:   "run",
		Short: "Run workloads at every degree of parallelism and print their timings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.Context(), cmd.OutOrStdout(), config)
		},
	}
	command.Flags().StringSliceVar(&config.workloads, "workloads", config.workloads,
		"workloads to run")
	command.Flags().Var(humanizeutil.NewCountValue(&config.size), "size",
		"number of input elements, e.g. 10k or 2.5M")
	command.Flags().IntSliceVar(&config.dops, "dop", config.dops, "degrees of parallelism")
	command.Flags().IntVar(&config.runs, "runs", config.runs,
		"runs per measurement; the fastest one is reported")
	command.Flags().Uint64Var(&config.seed, "seed", config.seed, "seed of the generated input")
	command.Flags().StringVar(&config.partitioning, "partitioning", config.partitioning,
		"source partitioning: auto, range, chunk or strip")
	command.Flags().StringVar(&config.metricsAddr, "metrics-addr", "",
		"serve engine metrics for prometheus on this address while running")
	command.Flags().BoolVar(&config.showMetrics, "show-metrics", false,
		"print the engine metrics after the timings")
	return command
}

type measurement struct {
	workload string
	dop      int
	best     time.Duration
	// runs holds the elapsed nanoseconds of every run.
	runs   stats.Float64Data
	result string
}

// spread returns the median and standard deviation of the runs.
func (m measurement) spread() (median, stddev time.Duration, _ error) {
	med, err := stats.Median(m.runs)
	if err != nil {
		return 0, 0, err
	}
	sd, err := stats.StandardDeviation(m.runs)
	if err != nil {
		return 0, 0, err
	}
	return time.Duration(med), time.Duration(sd), nil
}

func runBench(ctx context.Context, w io.Writer, config runConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ws, err := lookupWorkloads(config.workloads)
	if err != nil {
		return err
	}
	part, err := parsePartitioning(config.partitioning)
	if err != nil {
		return err
	}
	if config.runs < 1 {
		return errors.Newf("--runs must be positive, got %d", config.runs)
	}
	for _, dop := range config.dops {
		if dop < 1 || dop > pquery.MaxDegreeOfParallelism {
			return errors.Newf("--dop %d out of range [1, %d]", dop, pquery.MaxDegreeOfParallelism)
		}
	}
	if config.metricsAddr != "" {
		_, stop, err := serveMetrics(ctx, config.metricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	log.Infof(ctx, "generating %s elements", humanizeutil.Count(config.size))
	data := generate(int(config.size), config.seed)

	var results []measurement
	for _, wl := range ws {
		for _, dop := range config.dops {
			q := wl.prepare(data, dop, pquery.WithPartitioning(part))
			m := measurement{workload: wl.name, dop: dop}
			for i := 0; i < config.runs; i++ {
				start := time.Now()
				res, err := q.run(ctx)
				elapsed := time.Since(start)
				if err != nil {
					return errors.Wrapf(err, "workload %s at dop %d", wl.name, dop)
				}
				log.VEventf(ctx, 1, "%s dop=%d run=%d: %s", wl.name, dop, i, elapsed)
				if i == 0 || elapsed < m.best {
					m.best = elapsed
				}
				m.runs = append(m.runs, float64(elapsed))
				m.result = res
			}
			results = append(results, m)
		}
	}
	if err := renderMeasurements(w, config.size, results); err != nil {
		return err
	}
	if config.showMetrics {
		fmt.Fprintln(w)
		renderMetrics(w)
	}
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	return table
}

func renderMeasurements(w io.Writer, size int64, results []measurement) error {
	table := newTable(w, "workload", "dop", "best", "median", "stddev", "throughput", "speedup", "result")
	baseline := make(map[string]time.Duration)
	for _, m := range results {
		if _, ok := baseline[m.workload]; !ok {
			baseline[m.workload] = m.best
		}
		median, stddev, err := m.spread()
		if err != nil {
			return errors.Wrapf(err, "workload %s at dop %d", m.workload, m.dop)
		}
		speedup := "-"
		if m.best > 0 {
			speedup = fmt.Sprintf("%.2fx", float64(baseline[m.workload])/float64(m.best))
		}
		table.Append([]string{
			m.workload,
			strconv.Itoa(m.dop),
			humanizeutil.Duration(m.best),
			humanizeutil.Duration(median),
			humanizeutil.Duration(stddev),
			humanizeutil.Rate(size, m.best),
			speedup,
			m.result,
		})
	}
	table.Render()
	return nil
}

func renderMetrics(w io.Writer) {
	table := newTable(w, "metric", "value")
	pquery.Metrics().Each(func(name string, val float64) {
		table.Append([]string{name, strconv.FormatFloat(val, 'f', -1, 64)})
	})
	table.Render()
}

// serveMetrics exposes the engine metrics in the prometheus text format
// until the returned function is called.
func serveMetrics(ctx context.Context, addr string) (net.Addr, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "listening on %s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(pquery.Metrics().Gatherer(), promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warningf(ctx, "metrics server: %v", err)
		}
	}()
	log.Infof(ctx, "serving metrics on http://%s/metrics", ln.Addr())
	return ln.Addr(), func() { _ = srv.Close() }, nil
}

func makeExplainCommand() *cobra.Command {
	var dop int
	var partitioning string
	command := &cobra.Command{
		Use:   "explain <workload>",
		Short: "Print the operator graph of a workload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := lookupWorkloads(args)
			if err != nil {
				return err
			}
			part, err := parsePartitioning(partitioning)
			if err != nil {
				return err
			}
			q := ws[0].prepare(nil, dop, pquery.WithPartitioning(part))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n%s", ws[0].name, ws[0].desc, q.plan)
			return nil
		},
	}
	command.Flags().IntVar(&dop, "dop", 4, "degree of parallelism")
	command.Flags().StringVar(&partitioning, "partitioning", pquery.AutoPartitioning.String(),
		"source partitioning: auto, range, chunk or strip")
	return command
}

func makeSettingsCommand() *cobra.Command {
	var format string
	command := &cobra.Command{
		Use:   "settings",
		Short: "List engine settings and their current values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "table":
				table := newTable(cmd.OutOrStdout(), "setting", "value", "description")
				for _, key := range settings.Keys() {
					s, desc, _ := settings.Lookup(key)
					table.Append([]string{key, s.String(), desc})
				}
				table.Render()
				return nil
			case "yaml":
				return writeSettingsYAML(cmd.OutOrStdout())
			default:
				return errors.Newf("unknown format %q", format)
			}
		},
	}
	command.Flags().StringVar(&format, "format", "table",
		"output format: table, or yaml to produce a file accepted by --config")
	return command
}

// writeSettingsYAML writes the current settings nested by their dotted
// keys, e.g. pquery.merge.auto_buffer_size becomes
//
//	pquery:
//	  merge:
//	    auto_buffer_size: 64
func writeSettingsYAML(w io.Writer) error {
	root := make(map[string]interface{})
	for _, key := range settings.Keys() {
		s, _, _ := settings.Lookup(key)
		parts := strings.Split(key, ".")
		m := root
		for _, p := range parts[:len(parts)-1] {
			next, ok := m[p].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				m[p] = next
			}
			m = next
		}
		m[parts[len(parts)-1]] = settingValue(s)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return errors.Wrap(err, "encoding settings")
	}
	return enc.Close()
}

func settingValue(s settings.Setting) interface{} {
	switch s.Typ() {
	case "i":
		if v, err := strconv.ParseInt(s.String(), 10, 64); err == nil {
			return v
		}
	case "b":
		if v, err := strconv.ParseBool(s.String()); err == nil {
			return v
		}
	}
	return s.String()
}
