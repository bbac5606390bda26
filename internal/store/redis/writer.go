package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"marketsynth/internal/metrics"
	"marketsynth/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	keyPrefix      = "records:"
	latestPrefix   = "records:latest:"
	scanBatch      = 500
	defaultMaxLen  = 0 // untrimmed
	defaultFailMax = 5
	defaultCool    = 10 * time.Second
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	// StreamMaxLen approximately trims each symbol stream; 0 keeps everything.
	StreamMaxLen int64
}

// Writer appends enriched records to one stream per symbol and keeps the
// newest record of each symbol under a plain key.
type Writer struct {
	client *goredis.Client
	cb     *CircuitBreaker
	maxLen int64
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// Breaker returns the circuit breaker guarding batch writes.
func (w *Writer) Breaker() *CircuitBreaker { return w.cb }

// New connects, pings the server and returns a writer guarded by a
// default breaker.
func New(ctx context.Context, cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected", "addr", cfg.Addr)
	w := NewWithClient(client, NewCircuitBreaker(defaultFailMax, defaultCool))
	w.maxLen = cfg.StreamMaxLen
	return w, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, cb *CircuitBreaker) *Writer {
	return &Writer{client: client, cb: cb, maxLen: defaultMaxLen}
}

// Instrument reports breaker transitions to m.
func (w *Writer) Instrument(m *metrics.Metrics) {
	prev := w.cb.OnStateChange
	w.cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		m.RedisCircuitBreakerState.Set(float64(to))
		if to == StateOpen && from == StateClosed {
			m.RedisCircuitBreakerTrips.Inc()
		}
		slog.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
	}
}

// StreamKey is the stream holding every record of symbol.
func StreamKey(symbol string) string { return keyPrefix + symbol }

// LatestKey holds the newest record of symbol.
func LatestKey(symbol string) string { return latestPrefix + symbol }

// InsertBatch writes the batch in one pipeline: an XADD per record and a
// SET of the last record per symbol.
func (w *Writer) InsertBatch(ctx context.Context, records []model.EnrichedRecord) error {
	if len(records) == 0 {
		return nil
	}
	payloads, latest, err := encodeBatch(records)
	if err != nil {
		return err
	}

	return w.cb.Execute(ctx, func(ctx context.Context) error {
		pipe := w.client.Pipeline()
		for i := range records {
			pipe.XAdd(ctx, xaddArgs(records[i].Symbol, payloads[i], w.maxLen))
		}
		for symbol, data := range latest {
			pipe.Set(ctx, LatestKey(symbol), data, 0)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis pipeline (%d records): %w", len(records), err)
		}
		return nil
	})
}

func encodeBatch(records []model.EnrichedRecord) ([]string, map[string]string, error) {
	payloads := make([]string, len(records))
	latest := make(map[string]string)
	for i := range records {
		b, err := json.Marshal(records[i])
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s: %w", records[i].Symbol, err)
		}
		payloads[i] = string(b)
		latest[records[i].Symbol] = payloads[i]
	}
	return payloads, latest, nil
}

func xaddArgs(symbol, data string, maxLen int64) *goredis.XAddArgs {
	args := &goredis.XAddArgs{
		Stream: StreamKey(symbol),
		Values: map[string]interface{}{"data": data},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return args
}

// Reset deletes every record stream and latest key.
func (w *Writer) Reset(ctx context.Context) error {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := w.client.Scan(ctx, cursor, keyPrefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := w.client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			deleted += n
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	slog.Info("redis reset", "deleted", deleted)
	return nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
