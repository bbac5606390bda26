package main

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsynth/internal/generator"
	"marketsynth/internal/metrics"
	"marketsynth/internal/model"
)

func TestRunLog_GenerateThenServe(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	// generate side
	w, err := openSQLite(path)
	require.NoError(t, err)
	genHealth := metrics.NewHealthStatus()
	sum := generator.Summary{RunID: "run-42", Results: []generator.Result{
		{Symbol: "TCS", Records: 30},
		{Symbol: "INFY", Err: errors.New("write failed")},
	}}
	recordRun(ctx, w, genHealth, sum, "redis")
	require.NoError(t, w.Close())

	report, _ := genHealth.Report(false)
	assert.Equal(t, "run-42", report.LastRunID)
	assert.Equal(t, 1, report.LastRunFailed)

	// serve side, a separate process reading the same file
	r, err := openSQLite(path)
	require.NoError(t, err)
	defer r.Close()
	serveHealth := metrics.NewHealthStatus()
	require.NoError(t, loadLastRun(ctx, r, serveHealth))

	report, _ = serveHealth.Report(false)
	assert.Equal(t, "run-42", report.LastRunID)
	assert.Equal(t, 1, report.LastRunFailed)
	assert.NotEmpty(t, report.LastRunAt)
}

func TestLoadLastRun_EmptyLogLeavesHealthBlank(t *testing.T) {
	w, err := openSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer w.Close()

	h := metrics.NewHealthStatus()
	require.NoError(t, loadLastRun(context.Background(), w, h))
	report, _ := h.Report(false)
	assert.Empty(t, report.LastRunID)
	assert.Empty(t, report.LastRunAt)
}

type failingRunLog struct{}

func (failingRunLog) RecordRun(context.Context, model.Run) error { return errors.New("disk full") }
func (failingRunLog) LastRun(context.Context) (model.Run, error) {
	return model.Run{}, errors.New("disk full")
}

func TestRunLog_FailuresAreNotFatalToGenerate(t *testing.T) {
	h := metrics.NewHealthStatus()
	recordRun(context.Background(), failingRunLog{}, h, generator.Summary{RunID: "r"}, "sqlite")
	report, _ := h.Report(false)
	assert.Equal(t, "r", report.LastRunID)

	assert.Error(t, loadLastRun(context.Background(), failingRunLog{}, h))
}

func TestStartMetrics(t *testing.T) {
	stop, err := startMetrics("off", metrics.NewHealthStatus(), prometheus.NewRegistry(), false)
	require.NoError(t, err)
	stop()

	h := metrics.NewHealthStatus()
	h.SetSQLiteOK(true)
	reg := prometheus.NewRegistry()
	metrics.NewMetrics(reg)
	srv := metrics.NewServer("127.0.0.1:0", h, reg, false)
	require.NoError(t, srv.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	}()

	// A taken port surfaces as an error instead of a silent background failure.
	_, err = startMetrics(srv.Addr(), h, reg, false)
	assert.Error(t, err)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
