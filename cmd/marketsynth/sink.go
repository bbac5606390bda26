package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"marketsynth/config"
	"marketsynth/internal/metrics"
	"marketsynth/internal/model"
	"marketsynth/internal/query"
	pgstore "marketsynth/internal/store/postgres"
	redisstore "marketsynth/internal/store/redis"
	sqlitestore "marketsynth/internal/store/sqlite"
)

// writerSink is a bulk writer that can also clear previous runs.
type writerSink interface {
	model.BatchWriter
	model.Resetter
}

// openSink connects the configured bulk writer and registers it with the
// health status. The returned func releases it.
func openSink(ctx context.Context, c *config.Config, fields query.Fieldset, prom *metrics.Metrics, health *metrics.HealthStatus) (writerSink, func(), error) {
	switch c.Sink {
	case config.SinkRedis:
		w, err := redisstore.New(ctx, redisstore.WriterConfig{Addr: c.RedisAddr, Password: c.RedisPassword})
		if err != nil {
			health.SetRedisConnected(false)
			return nil, nil, err
		}
		w.Instrument(prom)
		health.SetRedisConnected(true)
		return w, func() { w.Close() }, nil

	case config.SinkPostgres:
		db, err := pgstore.Open(c.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		s, err := pgstore.NewStore(db, fields)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return s, closeDB, nil

	default:
		w, err := openSQLite(c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		health.SetSQLiteOK(true)
		return w, func() { w.Close() }, nil
	}
}

func openSQLite(path string) (*sqlitestore.Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: path})
	if err != nil {
		return nil, err
	}
	slog.Debug("sqlite sink ready", "path", path)
	return w, nil
}
