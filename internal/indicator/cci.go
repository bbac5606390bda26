package indicator

import talib "github.com/markcheno/go-talib"

// cciIndicator is the Commodity Channel Index over typical prices.
// A window with zero mean deviation reads 0.
type cciIndicator struct {
	key    string
	period int
}

func (i cciIndicator) Name() string     { return i.key }
func (i cciIndicator) Fields() []string { return nil }
func (i cciIndicator) Deficit() int     { return i.period - 1 }

func (i cciIndicator) Compute(in Inputs) (Series, error) {
	n, err := sameLength(i.key, in.High, in.Low, in.Close)
	if err != nil {
		return Series{}, err
	}
	if n <= i.Deficit() {
		return empty(i.key, nil, n), nil
	}
	return series(i.key, nil, padded(talib.Cci(in.High, in.Low, in.Close, i.period), i.Deficit())), nil
}
