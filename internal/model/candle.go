package model

import "time"

// Candle is one synthesized OHLCV bar for a single instrument.
// Prices are float64 rounded to two decimals by the synthesizer; the same
// rounded values feed the indicators and the writers.
type Candle struct {
	Symbol     string     `json:"symbol"`
	TS         time.Time  `json:"timestamp"` // bucket start time (UTC)
	Open       float64    `json:"open"`
	High       float64    `json:"high"`
	Low        float64    `json:"low"`
	Close      float64    `json:"close"`
	Volume     int64      `json:"volume"`
	Resolution Resolution `json:"resolution"`
}

// Bounded reports whether low <= min(open, close) and max(open, close) <= high.
func (c *Candle) Bounded() bool {
	lo, hi := c.Open, c.Close
	if lo > hi {
		lo, hi = hi, lo
	}
	return c.Low <= lo && hi <= c.High
}
