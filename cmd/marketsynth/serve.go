package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"marketsynth/config"
	"marketsynth/internal/api"
	"marketsynth/internal/indicator"
	"marketsynth/internal/metrics"
	"marketsynth/internal/model"
	"marketsynth/internal/query"
	pgstore "marketsynth/internal/store/postgres"
	redisstore "marketsynth/internal/store/redis"
	sqlitestore "marketsynth/internal/store/sqlite"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored records, search, triggers and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.HTTPAddr = addr
			}
			return runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default HTTP_ADDR)")
	return cmd
}

// runServe reads records from the configured sink. Triggers and the run
// log always live in SQLite.
func runServe(ctx context.Context) error {
	engine, err := indicator.NewDefaultEngine(cfg.Indicators)
	if err != nil {
		return err
	}
	fields := query.NewFieldset(engine.Keys())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()

	triggers, err := openSQLite(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer triggers.Close()
	health.SetSQLiteOK(true)
	if err := loadLastRun(ctx, triggers, health); err != nil {
		slog.Warn("last run unavailable", "error", err)
	}
	go refreshLastRun(ctx, triggers, health, 10*time.Second)

	redisRequired := cfg.Sink == config.SinkRedis
	var records model.RecordReader
	switch cfg.Sink {
	case config.SinkRedis:
		w, err := redisstore.New(ctx, redisstore.WriterConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		defer w.Close()
		w.Instrument(prom)
		health.SetRedisConnected(true)
		health.StartLivenessChecker(ctx, w.Client(), triggers.DB(), 10*time.Second)
		records = redisstore.NewReader(w.Client(), fields)
	case config.SinkPostgres:
		db, err := pgstore.Open(cfg.PostgresDSN)
		if err != nil {
			return err
		}
		if records, err = pgstore.NewStore(db, fields); err != nil {
			return err
		}
	default:
		r, err := sqlitestore.NewReader(cfg.SQLitePath, fields)
		if err != nil {
			return err
		}
		defer r.Close()
		records = r
	}
	if !redisRequired {
		health.StartLivenessChecker(ctx, nil, triggers.DB(), 10*time.Second)
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Deps{
		Records:       records,
		Triggers:      triggers,
		Fields:        fields,
		Health:        health,
		RedisRequired: redisRequired,
		Gatherer:      reg,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadLastRun copies the latest persisted run into the health status.
func loadLastRun(ctx context.Context, log model.RunLog, health *metrics.HealthStatus) error {
	run, err := log.LastRun(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	health.RecordRun(run.ID, run.At, run.Failed)
	return nil
}

// refreshLastRun picks up runs written by generate while serve is up.
func refreshLastRun(ctx context.Context, log model.RunLog, health *metrics.HealthStatus, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := loadLastRun(ctx, log, health); err != nil {
				slog.Warn("last run refresh failed", "error", err)
			}
		}
	}
}
