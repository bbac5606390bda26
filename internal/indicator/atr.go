package indicator

import talib "github.com/markcheno/go-talib"

// averageTrueRange is Wilder's ATR, defined from bar period on.
func averageTrueRange(high, low, closes []float64, period int) line {
	if len(closes) <= period {
		return line{start: len(closes)}
	}
	return padded(talib.Atr(high, low, closes, period), period)
}

type atrIndicator struct {
	key    string
	period int
}

func (i atrIndicator) Name() string     { return i.key }
func (i atrIndicator) Fields() []string { return nil }
func (i atrIndicator) Deficit() int     { return i.period }

func (i atrIndicator) Compute(in Inputs) (Series, error) {
	if _, err := sameLength(i.key, in.High, in.Low, in.Close); err != nil {
		return Series{}, err
	}
	return series(i.key, nil, averageTrueRange(in.High, in.Low, in.Close, i.period)), nil
}
