package indicator

import (
	"time"

	"marketsynth/internal/model"
)

// Engine computes every catalog indicator over a candle series and aligns
// the results onto the candles. It holds no per-series state, so one Engine
// may serve many goroutines.
type Engine struct {
	catalog []Indicator
	keys    []string

	// OnCompute, when set, observes the duration of each indicator run.
	OnCompute func(name string, d time.Duration)
}

// NewEngine creates an engine over catalog. Two indicators writing the
// same record key, or an indicator shadowing a candle column, is a
// configuration error.
func NewEngine(catalog []Indicator) (*Engine, error) {
	owner := make(map[string]string)
	var keys []string
	for _, ind := range catalog {
		for _, k := range Keys(ind) {
			if model.IsCandleField(k) {
				return nil, model.Errorf("engine", "indicator %s shadows candle field %q", ind.Name(), k)
			}
			if prev, dup := owner[k]; dup {
				return nil, model.Errorf("engine", "field %q produced by both %s and %s", k, prev, ind.Name())
			}
			owner[k] = ind.Name()
			keys = append(keys, k)
		}
	}
	return &Engine{catalog: catalog, keys: keys}, nil
}

// NewDefaultEngine builds an engine over the catalog for p.
func NewDefaultEngine(p Params) (*Engine, error) {
	cat, err := Catalog(p)
	if err != nil {
		return nil, err
	}
	return NewEngine(cat)
}

// Keys returns every indicator field key in catalog order.
func (e *Engine) Keys() []string { return e.keys }

// Indicators returns the catalog.
func (e *Engine) Indicators() []Indicator { return e.catalog }

// Compute runs every indicator over in.
func (e *Engine) Compute(in Inputs) ([]Series, error) {
	out := make([]Series, 0, len(e.catalog))
	for _, ind := range e.catalog {
		start := time.Now()
		s, err := ind.Compute(in)
		if err != nil {
			return nil, err
		}
		if e.OnCompute != nil {
			e.OnCompute(ind.Name(), time.Since(start))
		}
		out = append(out, s)
	}
	return out, nil
}

// Enrich computes all indicators over candles and returns one record per
// candle, in candle order.
func (e *Engine) Enrich(candles []model.Candle) ([]model.EnrichedRecord, error) {
	series, err := e.Compute(InputsFrom(candles))
	if err != nil {
		return nil, err
	}
	return Align(candles, series)
}
