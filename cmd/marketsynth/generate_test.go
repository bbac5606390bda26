package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsynth/config"
)

func parsed(t *testing.T, args ...string) (*cobra.Command, *generateFlags) {
	t.Helper()
	f := &generateFlags{}
	cmd := &cobra.Command{Use: "generate"}
	f.bind(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, f
}

func TestGenerateFlags_Override(t *testing.T) {
	cmd, f := parsed(t, "--now", "2024-06-03T15:30:00+05:30", "--seed", "9", "--symbols", "TCS,LT", "--batch-size", "10", "--sink", "Postgres", "--reset", "--metrics-addr", "off")
	c := config.Default()

	now, err := f.apply(cmd, c)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC), now)
	assert.Equal(t, int64(9), c.Seed)
	assert.Equal(t, []string{"TCS", "LT"}, c.Symbols)
	assert.Equal(t, 10, c.BatchSize)
	assert.Equal(t, config.SinkPostgres, c.Sink)
	assert.True(t, f.reset)
	assert.Equal(t, "off", c.MetricsAddr)
}

func TestGenerateFlags_UnsetKeepConfig(t *testing.T) {
	cmd, f := parsed(t)
	c := config.Default()
	c.Seed = 3

	now, err := f.apply(cmd, c)
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.Seed)
	assert.Len(t, c.Symbols, 20)
	assert.Equal(t, now, now.Truncate(time.Minute))
}

func TestGenerateFlags_Invalid(t *testing.T) {
	cmd, f := parsed(t, "--now", "yesterday")
	_, err := f.apply(cmd, config.Default())
	assert.Error(t, err)

	cmd, f = parsed(t, "--batch-size", "0")
	_, err = f.apply(cmd, config.Default())
	assert.Error(t, err)

	cmd, f = parsed(t, "--sink", "kafka")
	_, err = f.apply(cmd, config.Default())
	assert.Error(t, err)
}
