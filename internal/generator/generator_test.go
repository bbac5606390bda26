package generator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsynth/internal/indicator"
	"marketsynth/internal/metrics"
	"marketsynth/internal/model"
	"marketsynth/internal/schedule"
	"marketsynth/internal/synth"
)

// memWriter keeps every record per symbol. failSymbol makes writes for that
// symbol fail.
type memWriter struct {
	mu         sync.Mutex
	bySymbol   map[string][]model.EnrichedRecord
	failSymbol string
}

func newMemWriter() *memWriter {
	return &memWriter{bySymbol: make(map[string][]model.EnrichedRecord)}
}

func (m *memWriter) InsertBatch(_ context.Context, recs []model.EnrichedRecord) error {
	if len(recs) == 0 {
		return nil
	}
	sym := recs[0].Symbol
	if sym == m.failSymbol {
		return errors.New("connection reset")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySymbol[sym] = append(m.bySymbol[sym], recs...)
	return nil
}

var testNow = time.Date(2024, 6, 3, 9, 15, 0, 0, time.UTC)

// smallPhases keeps tests fast: 5 days of 3h bars, a day of 1h bars and
// six hours of 1m bars.
func smallPhases() []schedule.PhaseConfig {
	return []schedule.PhaseConfig{
		{From: "7d", To: "2d", Resolution: model.Res3h},
		{From: "2d", To: "1d", Resolution: model.Res1h},
		{From: "6h", To: "0", Resolution: model.Res1m},
	}
}

func newGenerator(t *testing.T, cfg Config, w model.BatchWriter, prom *metrics.Metrics) *Generator {
	t.Helper()
	s, err := synth.New(nil)
	require.NoError(t, err)
	engine, err := indicator.NewDefaultEngine(indicator.DefaultParams())
	require.NoError(t, err)
	g, err := New(cfg, s, engine, w, prom)
	require.NoError(t, err)
	return g
}

func TestRun_EmitsOneRecordPerSlot(t *testing.T) {
	w := newMemWriter()
	g := newGenerator(t, Config{
		Symbols: []string{"RELIANCE", "TCS"}, Now: testNow, Phases: smallPhases(),
		Seed: 1, BatchSize: 100, Concurrency: 2,
	}, w, nil)

	sum, err := g.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, sum.Failed())
	assert.NotEmpty(t, sum.RunID)

	slots, err := schedule.Build(testNow, smallPhases())
	require.NoError(t, err)
	for _, sym := range []string{"RELIANCE", "TCS"} {
		recs := w.bySymbol[sym]
		require.Len(t, recs, len(slots), sym)
		for i := range recs {
			assert.Equal(t, slots[i].TS, recs[i].TS)
			if i > 0 {
				require.Equal(t, recs[i-1].Close, recs[i].Open, "%s continuity at %d", sym, i)
			}
			require.True(t, recs[i].Bounded())
		}
	}
	assert.Equal(t, 2*len(slots), sum.Records())
}

func TestRun_SeededRunsAreByteIdentical(t *testing.T) {
	run := func(concurrency int) []byte {
		w := newMemWriter()
		g := newGenerator(t, Config{
			Symbols: []string{"INFY", "ITC", "LT"}, Now: testNow, Phases: smallPhases(),
			Seed: 99, Concurrency: concurrency,
		}, w, nil)
		_, err := g.Run(context.Background())
		require.NoError(t, err)
		b, err := json.Marshal(w.bySymbol)
		require.NoError(t, err)
		return b
	}
	assert.Equal(t, run(1), run(3))
}

func TestRun_DifferentSeedsDiffer(t *testing.T) {
	collect := func(seed int64) []model.EnrichedRecord {
		w := newMemWriter()
		g := newGenerator(t, Config{Symbols: []string{"SBIN"}, Now: testNow, Phases: smallPhases(), Seed: seed}, w, nil)
		_, err := g.Run(context.Background())
		require.NoError(t, err)
		return w.bySymbol["SBIN"]
	}
	assert.NotEqual(t, collect(1)[0].Close, collect(2)[0].Close)
}

func TestRun_FailureIsIsolated(t *testing.T) {
	w := newMemWriter()
	w.failSymbol = "TCS"
	reg := prometheus.NewRegistry()
	prom := metrics.NewMetrics(reg)
	g := newGenerator(t, Config{
		Symbols: []string{"RELIANCE", "TCS", "INFY"}, Now: testNow, Phases: smallPhases(), Seed: 5,
	}, w, prom)

	sum, err := g.Run(context.Background())
	require.NoError(t, err)

	failed := sum.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "TCS", failed[0].Symbol)
	var we *model.WriteError
	require.True(t, errors.As(failed[0].Err, &we))
	assert.Equal(t, 0, we.Offset)

	assert.NotEmpty(t, w.bySymbol["RELIANCE"])
	assert.NotEmpty(t, w.bySymbol["INFY"])
	assert.Empty(t, w.bySymbol["TCS"])

	assert.Equal(t, 1.0, testutil.ToFloat64(prom.InstrumentFailures.WithLabelValues("write")))
	assert.Equal(t, 2.0, testutil.ToFloat64(prom.InstrumentsTotal.WithLabelValues("ok")))
}

func TestRun_InvalidPhasePlanFailsRun(t *testing.T) {
	g := newGenerator(t, Config{
		Symbols: []string{"TCS"}, Now: testNow,
		Phases: []schedule.PhaseConfig{{From: "1d", To: "0", Resolution: "2m"}},
	}, newMemWriter(), nil)
	_, err := g.Run(context.Background())
	var ce *model.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestRun_EmptyPhasesYieldNoRecords(t *testing.T) {
	w := newMemWriter()
	g := newGenerator(t, Config{
		Symbols: []string{"TCS"}, Now: testNow,
		Phases: []schedule.PhaseConfig{{From: "0", To: "0", Resolution: model.Res1m}},
	}, w, nil)
	sum, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sum.Failed())
	assert.Zero(t, sum.Records())
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := newGenerator(t, Config{Symbols: []string{"TCS", "INFY"}, Now: testNow, Phases: smallPhases()}, newMemWriter(), nil)
	sum, err := g.Run(ctx)
	require.NoError(t, err)
	require.Len(t, sum.Failed(), 2)
	assert.ErrorIs(t, sum.Failed()[0].Err, context.Canceled)
}

func TestRun_ZeroVolatilityFlatSeries(t *testing.T) {
	s, err := synth.New(map[model.Resolution]synth.Profile{
		model.Res3h: {VolumeMax: 1000},
		model.Res1h: {VolumeMax: 1000},
		model.Res1m: {VolumeMax: 1000},
	})
	require.NoError(t, err)
	engine, err := indicator.NewDefaultEngine(indicator.DefaultParams())
	require.NoError(t, err)
	w := newMemWriter()
	g, err := New(Config{Symbols: []string{"ITC"}, Now: testNow, Phases: smallPhases(), StartMin: 1000, StartMax: 1000}, s, engine, w, nil)
	require.NoError(t, err)

	_, err = g.Run(context.Background())
	require.NoError(t, err)
	recs := w.bySymbol["ITC"]
	require.NotEmpty(t, recs)
	for _, r := range recs {
		require.Equal(t, 1000.0, r.Open)
		require.Equal(t, 1000.0, r.High)
		require.Equal(t, 1000.0, r.Low)
		require.Equal(t, 1000.0, r.Close)
	}
	last := recs[len(recs)-1]
	for _, key := range []string{"sma10", "ema200", "wma", "bb_middle", "keltner_middle", "psar"} {
		v, ok := last.Field(key)
		require.True(t, ok, key)
		assert.InDelta(t, 1000.0, v, 1e-9, key)
	}
	for _, key := range []string{"atr", "roc", "trix", "cci", "macd_macd"} {
		v, ok := last.Field(key)
		require.True(t, ok, key)
		assert.InDelta(t, 0.0, v, 1e-9, key)
	}
}

func TestSeedFor(t *testing.T) {
	assert.Equal(t, SeedFor(7, "TCS"), SeedFor(7, "TCS"))
	assert.NotEqual(t, SeedFor(7, "TCS"), SeedFor(7, "INFY"))
	assert.NotEqual(t, SeedFor(7, "TCS"), SeedFor(8, "TCS"))
}

func TestNew_RejectsBadConfig(t *testing.T) {
	s, err := synth.New(nil)
	require.NoError(t, err)
	engine, err := indicator.NewDefaultEngine(indicator.DefaultParams())
	require.NoError(t, err)

	_, err = New(Config{BatchSize: -1}, s, engine, newMemWriter(), nil)
	var ce *model.ConfigurationError
	assert.True(t, errors.As(err, &ce))

	_, err = New(Config{StartMin: 10, StartMax: 5}, s, engine, newMemWriter(), nil)
	assert.True(t, errors.As(err, &ce))
}
