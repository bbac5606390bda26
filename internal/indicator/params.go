package indicator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"marketsynth/internal/model"
)

// MACDParams configures MACD.
type MACDParams struct {
	Fast   int `yaml:"fast"`
	Slow   int `yaml:"slow"`
	Signal int `yaml:"signal"`
}

// BandParams configures Bollinger Bands.
type BandParams struct {
	Period int     `yaml:"period"`
	StdDev float64 `yaml:"stddev"`
}

// StochParams configures the stochastic oscillator.
type StochParams struct {
	Period int `yaml:"period"`
	Signal int `yaml:"signal"`
}

// IchimokuParams configures the Ichimoku lines.
type IchimokuParams struct {
	Conversion int `yaml:"conversion"`
	Base       int `yaml:"base"`
	SpanB      int `yaml:"span_b"`
}

// PSARParams configures Parabolic SAR.
type PSARParams struct {
	Step float64 `yaml:"step"`
	Max  float64 `yaml:"max"`
}

// KeltnerParams configures Keltner Channels.
type KeltnerParams struct {
	MAPeriod   int     `yaml:"ma_period"`
	ATRPeriod  int     `yaml:"atr_period"`
	Multiplier float64 `yaml:"multiplier"`
}

// Params holds the parameters of every catalog indicator.
type Params struct {
	SMA       []int          `yaml:"sma"`
	EMA       []int          `yaml:"ema"`
	WMA       int            `yaml:"wma"`
	RSI       int            `yaml:"rsi"`
	MACD      MACDParams     `yaml:"macd"`
	Bollinger BandParams     `yaml:"bollinger"`
	ATR       int            `yaml:"atr"`
	Stoch     StochParams    `yaml:"stoch"`
	ADX       int            `yaml:"adx"`
	CCI       int            `yaml:"cci"`
	WPR       int            `yaml:"wpr"`
	Ichimoku  IchimokuParams `yaml:"ichimoku"`
	PSAR      PSARParams     `yaml:"psar"`
	MFI       int            `yaml:"mfi"`
	ROC       int            `yaml:"roc"`
	TRIX      int            `yaml:"trix"`
	Keltner   KeltnerParams  `yaml:"keltner"`
}

// DefaultParams returns the standard catalog parameters.
func DefaultParams() Params {
	return Params{
		SMA:       []int{10, 20, 50, 200},
		EMA:       []int{10, 20, 50, 200},
		WMA:       20,
		RSI:       14,
		MACD:      MACDParams{Fast: 12, Slow: 26, Signal: 9},
		Bollinger: BandParams{Period: 20, StdDev: 2},
		ATR:       14,
		Stoch:     StochParams{Period: 14, Signal: 3},
		ADX:       14,
		CCI:       20,
		WPR:       14,
		Ichimoku:  IchimokuParams{Conversion: 9, Base: 26, SpanB: 52},
		PSAR:      PSARParams{Step: 0.02, Max: 0.2},
		MFI:       14,
		ROC:       12,
		TRIX:      18,
		Keltner:   KeltnerParams{MAPeriod: 20, ATRPeriod: 10, Multiplier: 1},
	}
}

// Validate rejects non-positive periods and multipliers. Window indicators
// that need a spread of values (bollinger, adx, cci, wpr, mfi) require at
// least two bars. Checks run in a fixed order so the first failure is stable.
func (p Params) Validate() error {
	for _, v := range p.SMA {
		if v <= 0 {
			return model.Errorf("indicator params", "sma period must be positive, got %d", v)
		}
	}
	for _, v := range p.EMA {
		if v <= 0 {
			return model.Errorf("indicator params", "ema period must be positive, got %d", v)
		}
	}

	periods := []struct {
		name string
		v    int
		min  int
	}{
		{"wma", p.WMA, 1},
		{"rsi", p.RSI, 1},
		{"macd.fast", p.MACD.Fast, 1},
		{"macd.slow", p.MACD.Slow, 1},
		{"macd.signal", p.MACD.Signal, 1},
		{"bollinger.period", p.Bollinger.Period, 2},
		{"atr", p.ATR, 1},
		{"stoch.period", p.Stoch.Period, 1},
		{"stoch.signal", p.Stoch.Signal, 1},
		{"adx", p.ADX, 2},
		{"cci", p.CCI, 2},
		{"wpr", p.WPR, 2},
		{"ichimoku.conversion", p.Ichimoku.Conversion, 1},
		{"ichimoku.base", p.Ichimoku.Base, 1},
		{"ichimoku.span_b", p.Ichimoku.SpanB, 1},
		{"mfi", p.MFI, 2},
		{"roc", p.ROC, 1},
		{"trix", p.TRIX, 1},
		{"keltner.ma_period", p.Keltner.MAPeriod, 1},
		{"keltner.atr_period", p.Keltner.ATRPeriod, 1},
	}
	for _, c := range periods {
		switch {
		case c.v <= 0:
			return model.Errorf("indicator params", "%s period must be positive, got %d", c.name, c.v)
		case c.v < c.min:
			return model.Errorf("indicator params", "%s period must be at least %d, got %d", c.name, c.min, c.v)
		}
	}
	if p.MACD.Fast >= p.MACD.Slow {
		return model.Errorf("indicator params", "macd fast period %d must be below slow period %d", p.MACD.Fast, p.MACD.Slow)
	}

	factors := []struct {
		name string
		v    float64
	}{
		{"bollinger.stddev", p.Bollinger.StdDev},
		{"psar.step", p.PSAR.Step},
		{"psar.max", p.PSAR.Max},
		{"keltner.multiplier", p.Keltner.Multiplier},
	}
	for _, f := range factors {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return model.Errorf("indicator params", "%s must be a positive number, got %v", f.name, f.v)
		}
	}
	if p.PSAR.Step > p.PSAR.Max {
		return model.Errorf("indicator params", "psar step %v exceeds max %v", p.PSAR.Step, p.PSAR.Max)
	}
	return nil
}

// ParseSpecs applies "TYPE:PARAM,..." overrides to base. Multi-valued
// parameters are separated by '|', in declaration order:
//
//	SMA:10|20|50, RSI:21, MACD:12|26|9, BB:20|2, STOCH:14|3,
//	ICHIMOKU:9|26|52, PSAR:0.02|0.2, KELTNER:20|10|1
//
// An empty string returns base unchanged.
func ParseSpecs(s string, base Params) (Params, error) {
	p := base
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tokens := strings.SplitN(part, ":", 2)
		if len(tokens) != 2 {
			return base, model.Errorf("indicator spec", "%q is not TYPE:PARAM", part)
		}
		typ := strings.ToUpper(strings.TrimSpace(tokens[0]))
		vals := strings.Split(strings.TrimSpace(tokens[1]), "|")
		if err := p.apply(typ, vals); err != nil {
			return base, model.Errorf("indicator spec", "%q: %v", part, err)
		}
	}
	return p, nil
}

func (p *Params) apply(typ string, vals []string) error {
	ints := func(want int) ([]int, error) {
		if want > 0 && len(vals) != want {
			return nil, fmt.Errorf("want %d values, got %d", want, len(vals))
		}
		out := make([]int, len(vals))
		for i, v := range vals {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}
	floats := func() ([]float64, error) {
		out := make([]float64, len(vals))
		for i, v := range vals {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	single := func(dst *int) error {
		v, err := ints(1)
		if err == nil {
			*dst = v[0]
		}
		return err
	}

	switch typ {
	case "SMA":
		v, err := ints(0)
		p.SMA = v
		return err
	case "EMA":
		v, err := ints(0)
		p.EMA = v
		return err
	case "WMA":
		return single(&p.WMA)
	case "RSI":
		return single(&p.RSI)
	case "ATR":
		return single(&p.ATR)
	case "ADX":
		return single(&p.ADX)
	case "CCI":
		return single(&p.CCI)
	case "WPR":
		return single(&p.WPR)
	case "MFI":
		return single(&p.MFI)
	case "ROC":
		return single(&p.ROC)
	case "TRIX":
		return single(&p.TRIX)
	case "MACD":
		v, err := ints(3)
		if err == nil {
			p.MACD = MACDParams{Fast: v[0], Slow: v[1], Signal: v[2]}
		}
		return err
	case "STOCH":
		v, err := ints(2)
		if err == nil {
			p.Stoch = StochParams{Period: v[0], Signal: v[1]}
		}
		return err
	case "ICHIMOKU":
		v, err := ints(3)
		if err == nil {
			p.Ichimoku = IchimokuParams{Conversion: v[0], Base: v[1], SpanB: v[2]}
		}
		return err
	case "BB":
		v, err := floats()
		if err != nil {
			return err
		}
		if len(v) != 2 || v[0] != math.Trunc(v[0]) {
			return fmt.Errorf("want PERIOD|STDDEV")
		}
		p.Bollinger = BandParams{Period: int(v[0]), StdDev: v[1]}
	case "PSAR":
		v, err := floats()
		if err != nil {
			return err
		}
		if len(v) != 2 {
			return fmt.Errorf("want STEP|MAX")
		}
		p.PSAR = PSARParams{Step: v[0], Max: v[1]}
	case "KELTNER":
		v, err := floats()
		if err != nil {
			return err
		}
		if len(v) != 3 || v[0] != math.Trunc(v[0]) || v[1] != math.Trunc(v[1]) {
			return fmt.Errorf("want MA|ATR|MULTIPLIER")
		}
		p.Keltner = KeltnerParams{MAPeriod: int(v[0]), ATRPeriod: int(v[1]), Multiplier: v[2]}
	default:
		return fmt.Errorf("unknown indicator type %s", typ)
	}
	return nil
}
