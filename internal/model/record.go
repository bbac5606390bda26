package model

import (
	"encoding/json"
	"sort"
	"time"
)

// EnrichedRecord is a candle plus the indicator fields defined at its index.
// A key missing from Fields means the candle lies inside that indicator's
// warm-up deficit; it is never stored as zero or null.
type EnrichedRecord struct {
	Candle
	Fields map[string]float64
}

// NewEnrichedRecord wraps c with an empty field set.
func NewEnrichedRecord(c Candle) EnrichedRecord {
	return EnrichedRecord{Candle: c, Fields: make(map[string]float64)}
}

// Field returns the indicator value stored under key.
func (r *EnrichedRecord) Field(key string) (float64, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// FieldKeys returns the populated indicator keys in sorted order.
func (r *EnrichedRecord) FieldKeys() []string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON flattens candle columns and indicator fields into one object.
// encoding/json sorts map keys, so equal records encode to equal bytes.
func (r EnrichedRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+8)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat["symbol"] = r.Symbol
	flat["timestamp"] = r.TS.UTC().Format(time.RFC3339Nano)
	flat["open"] = r.Open
	flat["high"] = r.High
	flat["low"] = r.Low
	flat["close"] = r.Close
	flat["volume"] = r.Volume
	flat["resolution"] = r.Resolution
	return json.Marshal(flat)
}

// UnmarshalJSON reverses MarshalJSON: every key that is not a candle column
// becomes an indicator field.
func (r *EnrichedRecord) UnmarshalJSON(b []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	var c Candle
	if err := json.Unmarshal(b, &c); err != nil {
		return err
	}
	r.Candle = c
	r.Fields = make(map[string]float64, len(flat))
	for k, raw := range flat {
		if IsCandleField(k) {
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		r.Fields[k] = v
	}
	return nil
}

// candleFields are the flattened record keys owned by the candle itself.
var candleFields = map[string]bool{
	"symbol": true, "timestamp": true, "open": true, "high": true,
	"low": true, "close": true, "volume": true, "resolution": true,
}

// IsCandleField reports whether key is a candle column rather than an indicator field.
func IsCandleField(key string) bool { return candleFields[key] }
