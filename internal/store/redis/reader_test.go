package redis

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsynth/internal/model"
	"marketsynth/internal/query"
)

func entries(t *testing.T, recs ...model.EnrichedRecord) []goredis.XMessage {
	t.Helper()
	payloads, _, err := encodeBatch(recs)
	require.NoError(t, err)
	msgs := make([]goredis.XMessage, len(recs))
	for i, p := range payloads {
		msgs[i] = goredis.XMessage{ID: "1-" + strconv.Itoa(i), Values: xaddArgs(recs[i].Symbol, p, 0).Values.(map[string]interface{})}
	}
	return msgs
}

func TestDecodeEntries_ReversesEncode(t *testing.T) {
	in := []model.EnrichedRecord{rec("TCS", 1, 10), rec("TCS", 2, 11)}
	got, err := decodeEntries(entries(t, in...))
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range in {
		assert.Equal(t, in[i].Candle, got[i].Candle)
		assert.Equal(t, in[i].Fields, got[i].Fields)
	}
}

func TestDecodeEntries_MissingData(t *testing.T) {
	_, err := decodeEntries([]goredis.XMessage{{ID: "5-0", Values: map[string]interface{}{"other": "x"}}})
	assert.ErrorContains(t, err, "5-0")
}

func TestSortNewestFirst_StableOnTies(t *testing.T) {
	a, b, c := rec("TCS", 1, 1), rec("INFY", 3, 2), rec("TCS", 3, 3)
	recs := []model.EnrichedRecord{a, b, c}
	sortNewestFirst(recs)
	assert.Equal(t, []float64{2, 3, 1}, []float64{recs[0].Close, recs[1].Close, recs[2].Close})
}

func TestApplyWindow(t *testing.T) {
	var recs []model.EnrichedRecord
	for m := 59; m >= 0; m-- {
		r := rec("TCS", m, float64(m))
		if m%2 == 0 {
			r.Resolution = model.Res1h
		}
		recs = append(recs, r)
	}

	got := applyWindow(recs, model.Window{Symbol: "TCS", Limit: 3, Resolution: model.Res1h})
	require.Len(t, got, 3)
	assert.Equal(t, []float64{58, 56, 54}, []float64{got[0].Close, got[1].Close, got[2].Close})

	got = applyWindow(recs, model.Window{Symbol: "TCS"})
	assert.Len(t, got, 60, "default limit exceeds the data")

	from := time.Date(2024, 5, 1, 9, 50, 0, 0, time.UTC).UnixMilli()
	got = applyWindow(recs, model.Window{Symbol: "TCS", From: from, Limit: 1, Resolution: model.Res1h})
	require.Len(t, got, 10, "from ignores limit and resolution")
	assert.Equal(t, 59.0, got[0].Close)
	assert.Equal(t, 50.0, got[9].Close)
}

func TestApplyWindow_DefaultLimit(t *testing.T) {
	recs := make([]model.EnrichedRecord, 150)
	for i := range recs {
		recs[i] = rec("TCS", 0, float64(i))
	}
	assert.Len(t, applyWindow(recs, model.Window{Symbol: "TCS"}), model.DefaultStocksLimit)
}

func TestSymbolsFromKeys(t *testing.T) {
	got := symbolsFromKeys([]string{LatestKey("TCS"), LatestKey("INFY"), LatestKey("TCS"), "unrelated"})
	assert.Equal(t, []string{"INFY", "TCS"}, got)
}

func TestReader_ValidatesBeforeReading(t *testing.T) {
	r := NewReader(unreachable(t), query.NewFieldset([]string{"rsi"}))
	_, err := r.Search(context.Background(), []model.Criterion{{Field: "nope", Operator: ">", Value: "1"}}, 0)
	var ve *query.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestReader_UnreachableServer(t *testing.T) {
	r := NewReader(unreachable(t), query.NewFieldset(nil))
	ctx := context.Background()

	_, err := r.Symbols(ctx)
	assert.Error(t, err)
	_, err = r.Stocks(ctx, model.Window{Symbol: "TCS"})
	assert.ErrorContains(t, err, "xrevrange TCS")
	_, err = r.Search(ctx, []model.Criterion{{Field: "close", Operator: ">", Value: "1"}}, 0)
	assert.Error(t, err)
}
