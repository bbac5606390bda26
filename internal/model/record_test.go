package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichedRecord_JSONFlattens(t *testing.T) {
	r := NewEnrichedRecord(Candle{
		Symbol: "TCS", TS: time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC),
		Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 42, Resolution: Res1m,
	})
	r.Fields["rsi"] = 55.5
	r.Fields["bb_upper"] = 3

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"symbol":"TCS","timestamp":"2024-05-01T09:15:00Z","open":1,"high":2,"low":0.5,
		"close":1.5,"volume":42,"resolution":"1m","rsi":55.5,"bb_upper":3
	}`, string(b))

	var back EnrichedRecord
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r.Candle, back.Candle)
	assert.Equal(t, r.Fields, back.Fields)
	assert.Equal(t, []string{"bb_upper", "rsi"}, back.FieldKeys())
}

func TestEnrichedRecord_JSONKeepsSubSecond(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 15, 0, 250*int(time.Millisecond), time.UTC)
	r := NewEnrichedRecord(Candle{Symbol: "TCS", TS: ts, Resolution: Res1m})

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"timestamp":"2024-05-01T09:15:00.25Z"`)

	var back EnrichedRecord
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, ts.UnixMilli(), back.TS.UnixMilli())
}

func TestEnrichedRecord_WarmupFieldAbsent(t *testing.T) {
	r := NewEnrichedRecord(Candle{Symbol: "LT", Resolution: Res3h})
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "sma")

	_, ok := r.Field("sma20")
	assert.False(t, ok)
}

func TestCandle_Bounded(t *testing.T) {
	assert.True(t, (&Candle{Open: 10, Close: 12, High: 12, Low: 9}).Bounded())
	assert.False(t, (&Candle{Open: 10, Close: 12, High: 11, Low: 9}).Bounded())
	assert.False(t, (&Candle{Open: 10, Close: 8, High: 11, Low: 9}).Bounded())
}

func TestTrigger_ApplyDefaults(t *testing.T) {
	var tr Trigger
	tr.ApplyDefaults()
	assert.Equal(t, Lifetime{Value: 15, Unit: "DAYS"}, tr.Lifetime)
	assert.Equal(t, 5, tr.Frequency)
	assert.Equal(t, TriggerActive, tr.Status)

	tr = Trigger{Lifetime: Lifetime{Value: 3}, Frequency: 1, Status: TriggerInactive}
	tr.ApplyDefaults()
	assert.Equal(t, Lifetime{Value: 3, Unit: "DAYS"}, tr.Lifetime)
	assert.Equal(t, 1, tr.Frequency)
	assert.Equal(t, TriggerInactive, tr.Status)
}

func TestParseResolution(t *testing.T) {
	r, err := ParseResolution("1h")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, r.Duration())

	_, err = ParseResolution("5m")
	var ce *ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestWriteError_Unwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&WriteError{Symbol: "TCS", Offset: 2000, Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "write TCS at offset 2000: disk full", err.Error())
}
