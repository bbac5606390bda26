// Package schedule turns relative phase boundaries into the ordered
// (timestamp, resolution) slots a candle series is synthesized on.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"marketsynth/internal/model"
)

// PhaseConfig describes one phase relative to "now". From and To are
// offsets into the past ("12mo", "30d", "2d", "0"); Step defaults to the
// resolution's nominal duration.
type PhaseConfig struct {
	From       string           `yaml:"from"`
	To         string           `yaml:"to"`
	Resolution model.Resolution `yaml:"resolution"`
	Step       string           `yaml:"step,omitempty"`
}

// Phase is a resolved half-open interval [Start, End) sampled every Step.
type Phase struct {
	Start      time.Time
	End        time.Time
	Step       time.Duration
	Resolution model.Resolution
}

// Slot is a single candle position.
type Slot struct {
	TS         time.Time
	Resolution model.Resolution
}

// DefaultPhases is the coarse-to-fine plan: 3h bars for the year up to a
// month ago, 1h bars until two days ago, 1m bars until now.
func DefaultPhases() []PhaseConfig {
	return []PhaseConfig{
		{From: "12mo", To: "30d", Resolution: model.Res3h},
		{From: "30d", To: "2d", Resolution: model.Res1h},
		{From: "2d", To: "0", Resolution: model.Res1m},
	}
}

// Back returns now shifted into the past by offset. Units: mo (calendar
// months), w, d (calendar days), h, m, s. A bare "0" means now.
func Back(now time.Time, offset string) (time.Time, error) {
	s := strings.TrimSpace(offset)
	if s == "" || s == "0" {
		return now, nil
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return time.Time{}, model.Errorf("offset", "%q has no amount", offset)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return time.Time{}, model.Errorf("offset", "%q: %v", offset, err)
	}
	switch s[i:] {
	case "mo":
		return now.AddDate(0, -n, 0), nil
	case "w":
		return now.AddDate(0, 0, -7*n), nil
	case "d":
		return now.AddDate(0, 0, -n), nil
	case "h":
		return now.Add(-time.Duration(n) * time.Hour), nil
	case "m":
		return now.Add(-time.Duration(n) * time.Minute), nil
	case "s":
		return now.Add(-time.Duration(n) * time.Second), nil
	default:
		return time.Time{}, model.Errorf("offset", "%q has unknown unit (want mo, w, d, h, m or s)", offset)
	}
}

// Resolve converts phase configs to absolute phases anchored at now.
func Resolve(now time.Time, cfgs []PhaseConfig) ([]Phase, error) {
	phases := make([]Phase, 0, len(cfgs))
	for i, c := range cfgs {
		if !c.Resolution.Valid() {
			return nil, model.Errorf("resolve", "phase %d: unknown resolution %q", i, c.Resolution)
		}
		start, err := Back(now, c.From)
		if err != nil {
			return nil, fmt.Errorf("phase %d from: %w", i, err)
		}
		end, err := Back(now, c.To)
		if err != nil {
			return nil, fmt.Errorf("phase %d to: %w", i, err)
		}
		step := c.Resolution.Duration()
		if c.Step != "" {
			step, err = time.ParseDuration(c.Step)
			if err != nil {
				return nil, model.Errorf("resolve", "phase %d: step %q: %v", i, c.Step, err)
			}
		}
		phases = append(phases, Phase{Start: start, End: end, Step: step, Resolution: c.Resolution})
	}
	return phases, nil
}

// Slots expands phases into timestamp slots. Each non-empty phase must start
// at or after the end of the previous non-empty phase. A phase whose Start
// is not before its End contributes nothing.
func Slots(phases []Phase) ([]Slot, error) {
	total := 0
	var prevEnd time.Time
	havePrev := false
	for i, p := range phases {
		if p.Step <= 0 {
			return nil, model.Errorf("slots", "phase %d: step must be positive, got %s", i, p.Step)
		}
		if !p.Resolution.Valid() {
			return nil, model.Errorf("slots", "phase %d: unknown resolution %q", i, p.Resolution)
		}
		if !p.Start.Before(p.End) {
			continue
		}
		if havePrev && p.Start.Before(prevEnd) {
			return nil, model.Errorf("slots", "phase %d starts at %s before previous phase ends at %s",
				i, p.Start.Format(time.RFC3339), prevEnd.Format(time.RFC3339))
		}
		prevEnd, havePrev = p.End, true
		total += int((p.End.Sub(p.Start) + p.Step - 1) / p.Step)
	}

	slots := make([]Slot, 0, total)
	for _, p := range phases {
		for t := p.Start; t.Before(p.End); t = t.Add(p.Step) {
			slots = append(slots, Slot{TS: t, Resolution: p.Resolution})
		}
	}
	return slots, nil
}

// Build resolves cfgs against now and expands them into slots.
func Build(now time.Time, cfgs []PhaseConfig) ([]Slot, error) {
	phases, err := Resolve(now, cfgs)
	if err != nil {
		return nil, err
	}
	return Slots(phases)
}
