package indicator

import talib "github.com/markcheno/go-talib"

var stochFields = []string{"k", "d"}

// stochIndicator is the fast stochastic oscillator: %K over period
// bars and %D as the SMA of %K. A flat range reads 0.
type stochIndicator struct {
	key            string
	period, signal int
}

func (i stochIndicator) Name() string     { return i.key }
func (i stochIndicator) Fields() []string { return stochFields }
func (i stochIndicator) Deficit() int     { return i.period - 1 + i.signal - 1 }

func (i stochIndicator) Compute(in Inputs) (Series, error) {
	n, err := sameLength(i.key, in.High, in.Low, in.Close)
	if err != nil {
		return Series{}, err
	}
	if n <= i.Deficit() {
		return empty(i.key, stochFields, n), nil
	}
	k, d := talib.StochF(in.High, in.Low, in.Close, i.period, i.signal, talib.SMA)
	return series(i.key, stochFields, padded(k, i.Deficit()), padded(d, i.Deficit())), nil
}
