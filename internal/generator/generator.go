// Package generator drives one generation run: for every instrument it
// synthesizes the candle series, enriches it with the indicator catalog and
// streams the records to a bulk writer.
package generator

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"marketsynth/internal/indicator"
	"marketsynth/internal/logger"
	"marketsynth/internal/metrics"
	"marketsynth/internal/model"
	"marketsynth/internal/schedule"
	"marketsynth/internal/synth"
)

// Config holds the run parameters.
type Config struct {
	Symbols     []string
	Now         time.Time
	Phases      []schedule.PhaseConfig
	StartMin    float64
	StartMax    float64
	Seed        int64
	BatchSize   int
	Concurrency int
}

func (c *Config) defaults() {
	if len(c.Symbols) == 0 {
		c.Symbols = model.DefaultSymbols
	}
	if c.Now.IsZero() {
		c.Now = time.Now().UTC().Truncate(time.Minute)
	}
	if c.Phases == nil {
		c.Phases = schedule.DefaultPhases()
	}
	if c.StartMin == 0 && c.StartMax == 0 {
		c.StartMin, c.StartMax = synth.DefaultStartMin, synth.DefaultStartMax
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.GOMAXPROCS(0)
	}
}

// Result is the outcome for one instrument.
type Result struct {
	Symbol  string
	Candles int
	Records int
	Batches int
	Elapsed time.Duration
	Err     error
}

// Summary is the outcome of a run, one Result per instrument in input order.
type Summary struct {
	RunID   string
	Results []Result
	Elapsed time.Duration
}

// Failed returns the results that ended in an error.
func (s Summary) Failed() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Records is the total number of records emitted across instruments.
func (s Summary) Records() int {
	n := 0
	for _, r := range s.Results {
		n += r.Records
	}
	return n
}

// Generator wires the synthesizer, the indicator engine and a writer.
type Generator struct {
	cfg    Config
	synth  *synth.Synthesizer
	engine *indicator.Engine
	writer model.BatchWriter
	prom   *metrics.Metrics
}

// New validates cfg and creates a Generator. prom may be nil.
func New(cfg Config, s *synth.Synthesizer, engine *indicator.Engine, w model.BatchWriter, prom *metrics.Metrics) (*Generator, error) {
	cfg.defaults()
	if cfg.BatchSize < 1 {
		return nil, model.Errorf("generator", "batch size must be at least 1, got %d", cfg.BatchSize)
	}
	if !(cfg.StartMin > 0) || cfg.StartMax < cfg.StartMin {
		return nil, model.Errorf("generator", "start price range [%v, %v) is invalid", cfg.StartMin, cfg.StartMax)
	}
	if s == nil || engine == nil || w == nil {
		return nil, errors.New("generator: synthesizer, engine and writer are required")
	}
	g := &Generator{cfg: cfg, synth: s, engine: engine, writer: w, prom: prom}
	if prom != nil {
		g.writer = instrumentedWriter{next: w, prom: prom}
	}
	return g, nil
}

// SeedFor derives an instrument's random seed from the run seed, so each
// series is reproducible regardless of goroutine scheduling.
func SeedFor(seed int64, symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return seed ^ int64(h.Sum64())
}

// Run processes every configured instrument. An instrument failure is
// recorded in its Result and never stops the others; only an invalid
// phase plan fails the run as a whole. Once ctx is cancelled no new
// instrument is started.
func (g *Generator) Run(ctx context.Context) (Summary, error) {
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = logger.NewRunID()
		ctx = logger.WithRunID(ctx, runID)
	}
	start := time.Now()

	slots, err := schedule.Build(g.cfg.Now, g.cfg.Phases)
	if err != nil {
		return Summary{RunID: runID}, fmt.Errorf("build schedule: %w", err)
	}

	slog.Info("generation run starting", append(logger.Attrs(ctx),
		"symbols", len(g.cfg.Symbols),
		"slots", len(slots),
		"concurrency", g.cfg.Concurrency,
		"batch_size", g.cfg.BatchSize,
	)...)

	results := make([]Result, len(g.cfg.Symbols))
	var eg errgroup.Group
	eg.SetLimit(g.cfg.Concurrency)
	for i, symbol := range g.cfg.Symbols {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Symbol: symbol, Err: err}
				return nil
			}
			results[i] = g.RunInstrument(ctx, symbol, slots)
			return nil
		})
	}
	_ = eg.Wait()

	sum := Summary{RunID: runID, Results: results, Elapsed: time.Since(start)}
	slog.Info("generation run finished", append(logger.Attrs(ctx),
		"records", sum.Records(),
		"failed", len(sum.Failed()),
		"elapsed", sum.Elapsed.Round(time.Millisecond).String(),
	)...)
	return sum, nil
}

// RunInstrument synthesizes, enriches and emits one instrument's series.
func (g *Generator) RunInstrument(ctx context.Context, symbol string, slots []schedule.Slot) Result {
	start := time.Now()
	res := Result{Symbol: symbol}
	defer func() {
		res.Elapsed = time.Since(start)
		g.observe(ctx, &res)
	}()

	rng := rand.New(rand.NewSource(SeedFor(g.cfg.Seed, symbol)))
	first := synth.StartPrice(rng, g.cfg.StartMin, g.cfg.StartMax)
	candles, err := g.synth.Run(symbol, slots, first, rng)
	if err != nil {
		res.Err = fmt.Errorf("synthesize %s: %w", symbol, err)
		return res
	}
	res.Candles = len(candles)
	if g.prom != nil {
		for i := range candles {
			g.prom.CandlesTotal.WithLabelValues(string(candles[i].Resolution)).Inc()
		}
	}

	records, err := g.engine.Enrich(candles)
	if err != nil {
		res.Err = fmt.Errorf("enrich %s: %w", symbol, err)
		return res
	}

	res.Batches, err = Emit(ctx, g.writer, symbol, records, g.cfg.BatchSize)
	res.Records = min(res.Batches*g.cfg.BatchSize, len(records))
	if err != nil {
		res.Err = err
	}
	return res
}

func (g *Generator) observe(ctx context.Context, res *Result) {
	if res.Err != nil {
		slog.Error("instrument failed", append(logger.Attrs(ctx),
			"symbol", res.Symbol,
			"candles", res.Candles,
			"records", res.Records,
			"error", res.Err,
		)...)
	} else {
		slog.Info("instrument done", append(logger.Attrs(ctx),
			"symbol", res.Symbol,
			"candles", res.Candles,
			"batches", res.Batches,
			"elapsed", res.Elapsed.Round(time.Millisecond).String(),
		)...)
	}
	if g.prom == nil {
		return
	}
	g.prom.InstrumentDur.Observe(res.Elapsed.Seconds())
	if res.Err == nil {
		g.prom.InstrumentsTotal.WithLabelValues("ok").Inc()
		return
	}
	g.prom.InstrumentsTotal.WithLabelValues("failed").Inc()
	var ce *model.ConfigurationError
	var we *model.WriteError
	switch {
	case errors.As(res.Err, &ce):
		g.prom.InstrumentFailures.WithLabelValues("config").Inc()
	case errors.As(res.Err, &we):
		g.prom.InstrumentFailures.WithLabelValues("write").Inc()
	default:
		g.prom.InstrumentFailures.WithLabelValues("other").Inc()
	}
}

// ObserveIndicators wires the engine's compute hook to prom.
func ObserveIndicators(engine *indicator.Engine, prom *metrics.Metrics) {
	engine.OnCompute = func(name string, d time.Duration) {
		prom.IndicatorComputeDur.WithLabelValues(name).Observe(d.Seconds())
	}
}
