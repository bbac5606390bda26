package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"marketsynth/config"
	"marketsynth/internal/generator"
	"marketsynth/internal/indicator"
	"marketsynth/internal/logger"
	"marketsynth/internal/metrics"
	"marketsynth/internal/model"
	"marketsynth/internal/query"
	"marketsynth/internal/synth"
)

type generateFlags struct {
	now       string
	seed      int64
	symbols   string
	batchSize int
	sink      string
	reset     bool
	metrics   string
}

func generateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesize candles, compute indicators and write enriched records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, f)
		},
	}
	f.bind(cmd)
	return cmd
}

func (f *generateFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.now, "now", "", "anchor time (RFC 3339); defaults to the current minute")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "run seed")
	cmd.Flags().StringVar(&f.symbols, "symbols", "", "comma separated symbols")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "records per bulk write")
	cmd.Flags().StringVar(&f.sink, "sink", "", "sqlite, redis or postgres")
	cmd.Flags().BoolVar(&f.reset, "reset", false, "clear stored records before writing")
	cmd.Flags().StringVar(&f.metrics, "metrics-addr", "", `metrics and health listen address, "off" disables (default METRICS_ADDR)`)
}

func (f generateFlags) apply(cmd *cobra.Command, c *config.Config) (time.Time, error) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		c.Seed = f.seed
	}
	if flags.Changed("symbols") {
		c.Symbols = config.SplitList(f.symbols)
	}
	if flags.Changed("batch-size") {
		c.BatchSize = f.batchSize
	}
	if flags.Changed("sink") {
		c.Sink = strings.ToLower(f.sink)
	}
	if flags.Changed("metrics-addr") {
		c.MetricsAddr = f.metrics
	}
	if err := c.Validate(); err != nil {
		return time.Time{}, err
	}
	if f.now == "" {
		return time.Now().UTC().Truncate(time.Minute), nil
	}
	now, err := time.Parse(time.RFC3339, f.now)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now: %w", err)
	}
	return now.UTC(), nil
}

func runGenerate(cmd *cobra.Command, f generateFlags) error {
	ctx := cmd.Context()
	now, err := f.apply(cmd, cfg)
	if err != nil {
		return err
	}
	slog.Info("generate starting", "config", cfg, "now", now.Format(time.RFC3339))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()

	// The run log always lives in SQLite next to the triggers.
	runs, err := openSQLite(cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer runs.Close()
	health.SetSQLiteOK(true)

	stopMetrics, err := startMetrics(cfg.MetricsAddr, health, reg, cfg.Sink == config.SinkRedis)
	if err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	defer stopMetrics()

	engine, err := indicator.NewDefaultEngine(cfg.Indicators)
	if err != nil {
		return err
	}
	generator.ObserveIndicators(engine, prom)

	s, err := synth.New(cfg.Profiles)
	if err != nil {
		return err
	}

	sink, closeSink, err := openSink(ctx, cfg, query.NewFieldset(engine.Keys()), prom, health)
	if err != nil {
		return fmt.Errorf("open %s sink: %w", cfg.Sink, err)
	}
	defer closeSink()

	if f.reset {
		if err := sink.Reset(ctx); err != nil {
			return fmt.Errorf("reset %s sink: %w", cfg.Sink, err)
		}
	}

	gen, err := generator.New(generator.Config{
		Symbols:     cfg.Symbols,
		Now:         now,
		Phases:      cfg.Phases,
		StartMin:    cfg.StartMin,
		StartMax:    cfg.StartMax,
		Seed:        cfg.Seed,
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
	}, s, engine, sink, prom)
	if err != nil {
		return err
	}

	runID := logger.NewRunID()
	sum, err := gen.Run(logger.WithRunID(ctx, runID))
	if err != nil {
		return err
	}
	recordRun(ctx, runs, health, sum, cfg.Sink)

	out := cmd.OutOrStdout()
	for _, r := range sum.Results {
		status := "ok"
		if r.Err != nil {
			status = "FAILED: " + r.Err.Error()
		}
		fmt.Fprintf(out, "%-12s candles=%-6d records=%-6d batches=%-3d %s\n", r.Symbol, r.Candles, r.Records, r.Batches, status)
	}
	fmt.Fprintf(out, "run %s: %d records in %s\n", sum.RunID, sum.Records(), sum.Elapsed.Round(time.Millisecond))

	if failed := sum.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d instruments failed", len(failed), len(sum.Results))
	}
	return nil
}

// startMetrics serves /metrics and /healthz for the duration of a run.
// An empty or "off" address disables it.
func startMetrics(addr string, health *metrics.HealthStatus, g prometheus.Gatherer, redisRequired bool) (func(), error) {
	if addr == "" || strings.EqualFold(addr, "off") {
		return func() {}, nil
	}
	srv := metrics.NewServer(addr, health, g, redisRequired)
	if err := srv.Start(); err != nil {
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			slog.Warn("metrics server shutdown", "error", err)
		}
	}, nil
}

// recordRun publishes the run to the health status and persists it so
// serve can report it. A failed write is logged, never fatal.
func recordRun(ctx context.Context, log model.RunLog, health *metrics.HealthStatus, sum generator.Summary, sink string) {
	run := model.Run{
		ID:      sum.RunID,
		At:      time.Now().UTC(),
		Sink:    sink,
		Records: sum.Records(),
		Failed:  len(sum.Failed()),
	}
	health.RecordRun(run.ID, run.At, run.Failed)
	if err := log.RecordRun(ctx, run); err != nil {
		slog.Warn("run log write failed", "run_id", run.ID, "error", err)
	}
}
