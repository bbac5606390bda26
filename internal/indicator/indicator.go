// Package indicator provides technical indicator calculations over candle data.
//
// Every catalog entry is a pure function from full-length input columns to a
// Series that is shorter than the input by the indicator's warm-up deficit.
// The moving averages, RSI, MACD, Ichimoku and Keltner middle line are
// built from the streaming primitives in this package, which consume one
// value per Update. The remaining oscillators and bands come from go-talib.
package indicator

import (
	"marketsynth/internal/model"
)

// Indicator is the interface for all catalog indicators.
type Indicator interface {
	// Name returns the record key (e.g. "sma20", "rsi") or, for composite
	// indicators, the key prefix (e.g. "macd").
	Name() string

	// Fields returns sub-field names of a composite indicator, nil otherwise.
	Fields() []string

	// Deficit is the number of leading candles that get no value,
	// assuming the input is long enough.
	Deficit() int

	// Compute runs the indicator over the full input.
	Compute(in Inputs) (Series, error)
}

// Inputs are the candle columns indicators draw on. Columns an indicator
// uses must all have the same length.
type Inputs struct {
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// InputsFrom extracts the columns of candles.
func InputsFrom(candles []model.Candle) Inputs {
	n := len(candles)
	in := Inputs{
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  make([]float64, n),
		Volume: make([]float64, n),
	}
	for i := range candles {
		in.High[i] = candles[i].High
		in.Low[i] = candles[i].Low
		in.Close[i] = candles[i].Close
		in.Volume[i] = float64(candles[i].Volume)
	}
	return in
}

// Series is one indicator's output. Rows[j] holds one value per field
// (a single value for non-composite indicators) and describes candle
// j + (N - len(Rows)).
type Series struct {
	Name   string
	Fields []string
	Rows   [][]float64
}

// Len returns the number of output rows (M).
func (s Series) Len() int { return len(s.Rows) }

// Width is the number of values per row.
func (s Series) Width() int {
	if len(s.Fields) == 0 {
		return 1
	}
	return len(s.Fields)
}

// Keys returns the flattened record keys this series populates.
func (s Series) Keys() []string { return keysOf(s.Name, s.Fields) }

func keysOf(name string, fields []string) []string {
	if len(fields) == 0 {
		return []string{name}
	}
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = name + "_" + f
	}
	return keys
}

// stream is a streaming primitive fed one value at a time.
type stream interface {
	Update(v float64)
	Value() float64
	Ready() bool
}

// line is a partial column: v[k] describes input index start+k and the
// line always runs to the end of the input.
type line struct {
	start int
	v     []float64
}

func (l line) at(i int) float64 { return l.v[i-l.start] }

// end is the input length the line is aligned to.
func (l line) end() int { return l.start + len(l.v) }

// collect feeds values through st and keeps every output produced once
// st is ready.
func collect(st stream, values []float64) line {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		st.Update(v)
		if st.Ready() {
			out = append(out, st.Value())
		}
	}
	return line{start: len(values) - len(out), v: out}
}

// then feeds l through st, keeping the result aligned to the original input.
func (l line) then(st stream) line {
	out := collect(st, l.v)
	out.start += l.start
	return out
}

// padded trims a go-talib output, whose first lookback entries are zero
// padding, to an aligned line.
func padded(out []float64, lookback int) line {
	if lookback >= len(out) {
		return line{start: len(out)}
	}
	return line{start: lookback, v: out[lookback:]}
}

// empty is the zero-row series for inputs no longer than the deficit.
// go-talib indexes past its lookback, so callers return it before calling in.
func empty(name string, fields []string, n int) Series {
	return series(name, fields, line{start: n})
}

// series assembles rows from lines, starting where every line is defined.
func series(name string, fields []string, lines ...line) Series {
	s := Series{Name: name, Fields: fields}
	if len(lines) == 0 {
		return s
	}
	n := lines[0].end()
	start := 0
	for _, l := range lines {
		if l.start > start {
			start = l.start
		}
	}
	if start >= n {
		s.Rows = [][]float64{}
		return s
	}
	s.Rows = make([][]float64, 0, n-start)
	for i := start; i < n; i++ {
		row := make([]float64, len(lines))
		for k, l := range lines {
			row[k] = l.at(i)
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// sameLength checks that every column an indicator uses has the same length.
func sameLength(name string, cols ...[]float64) (int, error) {
	if len(cols) == 0 {
		return 0, nil
	}
	n := len(cols[0])
	for _, c := range cols[1:] {
		if len(c) != n {
			return 0, model.Errorf(name, "input columns have different lengths (%d vs %d)", n, len(c))
		}
	}
	return n, nil
}
