package indicator

import talib "github.com/markcheno/go-talib"

// wprIndicator is Williams %R in [-100, 0]. A flat range reads 0.
type wprIndicator struct {
	key    string
	period int
}

func (i wprIndicator) Name() string     { return i.key }
func (i wprIndicator) Fields() []string { return nil }
func (i wprIndicator) Deficit() int     { return i.period - 1 }

func (i wprIndicator) Compute(in Inputs) (Series, error) {
	n, err := sameLength(i.key, in.High, in.Low, in.Close)
	if err != nil {
		return Series{}, err
	}
	if n <= i.Deficit() {
		return empty(i.key, nil, n), nil
	}
	return series(i.key, nil, padded(talib.WillR(in.High, in.Low, in.Close, i.period), i.Deficit())), nil
}
