package metrics

import (
	"context"
	"database/sql"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the generator.
type Metrics struct {
	CandlesTotal   *prometheus.CounterVec // labels: resolution
	RecordsEmitted prometheus.Counter
	BatchesTotal   prometheus.Counter
	BatchWriteDur  prometheus.Histogram

	// Indicator engine metrics
	IndicatorComputeDur *prometheus.HistogramVec // labels: indicator

	// Per-instrument outcomes
	InstrumentsTotal   *prometheus.CounterVec // labels: outcome=ok|failed
	InstrumentDur      prometheus.Histogram
	InstrumentFailures *prometheus.CounterVec // labels: kind=config|write|other

	// Circuit breaker metrics
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
}

// NewMetrics creates all metrics and registers them with reg.
// Binaries and tests each pass their own registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CandlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketsynth_candles_total",
			Help: "Total candles synthesized (by resolution)",
		}, []string{"resolution"}),
		RecordsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketsynth_records_emitted_total",
			Help: "Enriched records accepted by the bulk writer",
		}),
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketsynth_batches_total",
			Help: "Batches handed to the bulk writer",
		}),
		BatchWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketsynth_batch_write_duration_seconds",
			Help:    "Bulk writer latency per batch",
			Buckets: prometheus.DefBuckets,
		}),

		IndicatorComputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketsynth_indicator_compute_duration_seconds",
			Help:    "Indicator compute latency over one instrument series",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"indicator"}),

		InstrumentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketsynth_instruments_total",
			Help: "Instruments processed (by outcome)",
		}, []string{"outcome"}),
		InstrumentDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketsynth_instrument_duration_seconds",
			Help:    "Wall time to synthesize, enrich and emit one instrument",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		InstrumentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketsynth_instrument_failures_total",
			Help: "Instrument failures (config, write, other)",
		}, []string{"kind"}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marketsynth_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketsynth_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
	}

	reg.MustRegister(
		m.CandlesTotal,
		m.RecordsEmitted,
		m.BatchesTotal,
		m.BatchWriteDur,
		m.IndicatorComputeDur,
		m.InstrumentsTotal,
		m.InstrumentDur,
		m.InstrumentFailures,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
	)

	return m
}

// HealthStatus tracks sink reachability and the outcome of the last run.
type HealthStatus struct {
	mu sync.RWMutex

	SQLiteOK       bool
	RedisConnected bool
	LastRunID      string
	LastRunAt      time.Time
	LastRunFailed  int

	// Liveness check results
	RedisLatencyMs  float64
	SQLiteLatencyMs float64
	LastCheckAt     time.Time
	StartedAt       time.Time
}

// HealthReport is the JSON view of HealthStatus.
type HealthReport struct {
	Status          string  `json:"status"`
	Uptime          string  `json:"uptime"`
	SQLiteOK        bool    `json:"sqlite_ok"`
	SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
	RedisConnected  bool    `json:"redis_connected"`
	RedisLatencyMs  float64 `json:"redis_latency_ms"`
	LastRunID       string  `json:"last_run_id,omitempty"`
	LastRunAt       string  `json:"last_run_at,omitempty"`
	LastRunFailed   int     `json:"last_run_failed"`
	LastCheckAt     string  `json:"last_check_at,omitempty"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

// RecordRun notes the outcome of a generation run.
func (h *HealthStatus) RecordRun(runID string, at time.Time, failed int) {
	h.mu.Lock()
	h.LastRunID = runID
	h.LastRunAt = at
	h.LastRunFailed = failed
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx is done.
// Either client may be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(checkCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(checkCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// Report summarizes health. redisRequired marks Redis as a hard dependency.
// The second return is false when the service should answer 503.
func (h *HealthStatus) Report(redisRequired bool) (HealthReport, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status, ok := "healthy", true
	if !h.SQLiteOK || (redisRequired && !h.RedisConnected) {
		status, ok = "degraded", false
	}

	r := HealthReport{
		Status:          status,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		LastRunID:       h.LastRunID,
		LastRunFailed:   h.LastRunFailed,
	}
	if !h.LastRunAt.IsZero() {
		r.LastRunAt = h.LastRunAt.Format(time.RFC3339)
	}
	if !h.LastCheckAt.IsZero() {
		r.LastCheckAt = h.LastCheckAt.Format(time.RFC3339)
	}
	return r, ok
}
