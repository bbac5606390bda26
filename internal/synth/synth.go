// Package synth produces bounded random-walk OHLCV candles.
package synth

import (
	"math"
	"math/rand"

	"marketsynth/internal/model"
	"marketsynth/internal/schedule"
)

// Profile holds the random-walk parameters for one resolution.
type Profile struct {
	Volatility float64 `yaml:"volatility"`
	VolumeMin  int64   `yaml:"volume_min"`
	VolumeMax  int64   `yaml:"volume_max"` // exclusive upper bound
}

// DefaultProfiles returns the per-resolution walk parameters.
func DefaultProfiles() map[model.Resolution]Profile {
	return map[model.Resolution]Profile{
		model.Res3h: {Volatility: 0.015, VolumeMin: 0, VolumeMax: 600000},
		model.Res1h: {Volatility: 0.01, VolumeMin: 0, VolumeMax: 600000},
		model.Res1m: {Volatility: 0.002, VolumeMin: 0, VolumeMax: 100000},
	}
}

// Default start price range.
const (
	DefaultStartMin = 500.0
	DefaultStartMax = 2500.0
)

// Synthesizer generates candles from per-resolution profiles.
// It holds no mutable state; randomness comes from the caller's rng.
type Synthesizer struct {
	Profiles map[model.Resolution]Profile
}

// New creates a Synthesizer, falling back to DefaultProfiles when profiles is nil.
func New(profiles map[model.Resolution]Profile) (*Synthesizer, error) {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	s := &Synthesizer{Profiles: profiles}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every profile.
func (s *Synthesizer) Validate() error {
	for res, p := range s.Profiles {
		if !res.Valid() {
			return model.Errorf("profile", "unknown resolution %q", res)
		}
		if p.Volatility < 0 || math.IsNaN(p.Volatility) || math.IsInf(p.Volatility, 0) {
			return model.Errorf("profile", "%s: volatility must be a finite non-negative number, got %v", res, p.Volatility)
		}
		if p.VolumeMin < 0 || p.VolumeMax < p.VolumeMin {
			return model.Errorf("profile", "%s: volume range [%d, %d) is invalid", res, p.VolumeMin, p.VolumeMax)
		}
	}
	return nil
}

// Synthesize draws one candle whose open is prevClose. Draw order is fixed
// (change, high wick, low wick, volume) so a seeded rng reproduces the series.
func (s *Synthesizer) Synthesize(symbol string, slot schedule.Slot, prevClose float64, rng *rand.Rand) (model.Candle, error) {
	p, ok := s.Profiles[slot.Resolution]
	if !ok {
		return model.Candle{}, model.Errorf("synthesize", "no profile for resolution %q", slot.Resolution)
	}

	open := prevClose
	change := open * p.Volatility * (rng.Float64() - 0.5)
	closePx := open + change
	high := math.Max(open, closePx) + rng.Float64()*open*p.Volatility*0.5
	low := math.Min(open, closePx) - rng.Float64()*open*p.Volatility*0.5
	volume := p.VolumeMin + int64(math.Floor(rng.Float64()*float64(p.VolumeMax-p.VolumeMin)))

	return model.Candle{
		Symbol:     symbol,
		TS:         slot.TS,
		Open:       Round2(open),
		High:       Round2(high),
		Low:        Round2(low),
		Close:      Round2(closePx),
		Volume:     volume,
		Resolution: slot.Resolution,
	}, nil
}

// StartPrice draws an initial close uniformly from [lo, hi).
func StartPrice(rng *rand.Rand, lo, hi float64) float64 {
	return Round2(lo + rng.Float64()*(hi-lo))
}

// Run synthesizes one candle per slot, chaining each rounded close into the
// next open across resolution changes.
func (s *Synthesizer) Run(symbol string, slots []schedule.Slot, start float64, rng *rand.Rand) ([]model.Candle, error) {
	candles := make([]model.Candle, 0, len(slots))
	last := Round2(start)
	for _, slot := range slots {
		c, err := s.Synthesize(symbol, slot, last, rng)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
		last = c.Close
	}
	return candles, nil
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
