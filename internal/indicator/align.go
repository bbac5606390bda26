package indicator

import (
	"math"

	"marketsynth/internal/model"
)

// Align merges indicator series into one EnrichedRecord per candle.
// Element j of a series of length M over N candles lands on candle
// j + (N - M); earlier candles get no field for that series. Series are
// aligned independently of each other.
func Align(candles []model.Candle, series []Series) ([]model.EnrichedRecord, error) {
	n := len(candles)
	records := make([]model.EnrichedRecord, n)
	for i := range candles {
		records[i] = model.NewEnrichedRecord(candles[i])
	}

	for _, s := range series {
		m := s.Len()
		if m > n {
			return nil, model.Errorf("align", "series %s has %d values for %d candles", s.Name, m, n)
		}
		keys := s.Keys()
		offset := n - m
		for j, row := range s.Rows {
			if len(row) != len(keys) {
				return nil, model.Errorf("align", "series %s row %d has %d values, want %d", s.Name, j, len(row), len(keys))
			}
			rec := &records[j+offset]
			for k, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, model.Errorf("align", "series %s produced non-finite %s at candle %d", s.Name, keys[k], j+offset)
				}
				rec.Fields[keys[k]] = v
			}
		}
	}
	return records, nil
}
