package query

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsynth/internal/model"
)

var fs = NewFieldset([]string{"rsi", "sma20", "macd_signal"})

func rec(symbol string, res model.Resolution, closePx float64, fields map[string]float64) model.EnrichedRecord {
	r := model.NewEnrichedRecord(model.Candle{
		Symbol: symbol, Resolution: res, Close: closePx, Open: closePx, High: closePx, Low: closePx,
		Volume: 500, TS: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	for k, v := range fields {
		r.Fields[k] = v
	}
	return r
}

func TestBuild_LeftFoldWithoutPrecedence(t *testing.T) {
	// (rsi > 70 OR rsi < 30) AND symbol == TCS
	n, err := Build([]model.Criterion{
		{Field: "rsi", Operator: ">", Value: "70", Joiner: "OR"},
		{Field: "rsi", Operator: "<", Value: "30", Joiner: "AND"},
		{Field: "symbol", Operator: "==", Value: "TCS"},
	}, fs)
	require.NoError(t, err)
	require.Equal(t, model.JoinAnd, n.Op)
	require.Equal(t, model.JoinOr, n.Left.Op)

	assert.True(t, n.Match(ptr(rec("TCS", model.Res1m, 10, map[string]float64{"rsi": 80}))))
	assert.True(t, n.Match(ptr(rec("TCS", model.Res1m, 10, map[string]float64{"rsi": 20}))))
	assert.False(t, n.Match(ptr(rec("TCS", model.Res1m, 10, map[string]float64{"rsi": 50}))))
	assert.False(t, n.Match(ptr(rec("INFY", model.Res1m, 10, map[string]float64{"rsi": 80}))))
}

func TestBuild_MissingJoinerIsOr(t *testing.T) {
	n, err := Build([]model.Criterion{
		{Field: "close", Operator: ">", Value: "100"},
		{Field: "close", Operator: "<", Value: "10"},
	}, fs)
	require.NoError(t, err)
	assert.Equal(t, model.JoinOr, n.Op)
	assert.True(t, n.Match(ptr(rec("LT", model.Res1h, 5, nil))))
	assert.False(t, n.Match(ptr(rec("LT", model.Res1h, 50, nil))))
}

func TestBuild_LastJoinerIgnored(t *testing.T) {
	n, err := Build([]model.Criterion{{Field: "close", Operator: ">=", Value: "5", Joiner: "AND"}}, fs)
	require.NoError(t, err)
	assert.True(t, n.Leaf())
}

func TestMatch_SymbolFuzzyAndExact(t *testing.T) {
	fuzzy, err := Build([]model.Criterion{{Field: "symbol", Operator: "==", Value: "bank"}}, fs)
	require.NoError(t, err)
	assert.True(t, fuzzy.Match(ptr(rec("HDFCBANK", model.Res1m, 1, nil))))
	assert.True(t, fuzzy.Match(ptr(rec("KOTAKBANK", model.Res1m, 1, nil))))
	assert.False(t, fuzzy.Match(ptr(rec("TCS", model.Res1m, 1, nil))))

	exact, err := Build([]model.Criterion{{Field: "symbol", Operator: "==", Value: "LT"}}, fs)
	require.NoError(t, err)
	assert.True(t, exact.Match(ptr(rec("LT", model.Res1m, 1, nil))))
	assert.False(t, exact.Match(ptr(rec("LTIM", model.Res1m, 1, nil))))
}

func TestMatch_ResolutionContains(t *testing.T) {
	n, err := Build([]model.Criterion{{Field: "resolution", Operator: "contains", Value: "H"}}, fs)
	require.NoError(t, err)
	assert.True(t, n.Match(ptr(rec("LT", model.Res3h, 1, nil))))
	assert.False(t, n.Match(ptr(rec("LT", model.Res1m, 1, nil))))
}

func TestMatch_MissingIndicatorIsFalse(t *testing.T) {
	n, err := Build([]model.Criterion{{Field: "sma20", Operator: "<=", Value: "1000"}}, fs)
	require.NoError(t, err)
	assert.False(t, n.Match(ptr(rec("LT", model.Res1m, 1, nil))))
	assert.True(t, n.Match(ptr(rec("LT", model.Res1m, 1, map[string]float64{"sma20": 999}))))
}

func TestMatch_Timestamp(t *testing.T) {
	r := rec("LT", model.Res1m, 1, nil)
	after, err := Build([]model.Criterion{{Field: "timestamp", Operator: ">=", Value: "2024-05-01T00:00:00Z"}}, fs)
	require.NoError(t, err)
	assert.True(t, after.Match(&r))

	millis, err := Build([]model.Criterion{{Field: "timestamp", Operator: "<", Value: "1714521600000"}}, fs)
	require.NoError(t, err)
	assert.False(t, millis.Match(&r))
}

func TestBuild_ValidationErrors(t *testing.T) {
	cases := map[string][]model.Criterion{
		"empty":            nil,
		"unknown field":    {{Field: "pe_ratio", Operator: ">", Value: "1"}},
		"unknown operator": {{Field: "close", Operator: "!=", Value: "1"}},
		"non-numeric":      {{Field: "rsi", Operator: ">", Value: "high"}},
		"contains numeric": {{Field: "close", Operator: "contains", Value: "1"}},
		"bad timestamp":    {{Field: "timestamp", Operator: ">", Value: "yesterday"}},
		"second invalid":   {{Field: "close", Operator: ">", Value: "1", Joiner: "AND"}, {Field: "nope", Operator: ">", Value: "1"}},
	}
	for name, criteria := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Build(criteria, fs)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}

func TestFilter_KeepsOrder(t *testing.T) {
	n, err := Build([]model.Criterion{{Field: "close", Operator: ">", Value: "2"}}, fs)
	require.NoError(t, err)
	in := []model.EnrichedRecord{
		rec("A", model.Res1m, 5, nil),
		rec("B", model.Res1m, 1, nil),
		rec("C", model.Res1m, 3, nil),
	}
	out := Filter(n, in)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Symbol)
	assert.Equal(t, "C", out[1].Symbol)
}

func ptr(r model.EnrichedRecord) *model.EnrichedRecord { return &r }
