package indicator

import talib "github.com/markcheno/go-talib"

// trixIndicator is the one-bar percentage change of a triple EMA.
type trixIndicator struct {
	key    string
	period int
}

func (i trixIndicator) Name() string     { return i.key }
func (i trixIndicator) Fields() []string { return nil }
func (i trixIndicator) Deficit() int     { return 3*(i.period-1) + 1 }

func (i trixIndicator) Compute(in Inputs) (Series, error) {
	n := len(in.Close)
	if n <= i.Deficit() {
		return empty(i.key, nil, n), nil
	}
	return series(i.key, nil, padded(talib.Trix(in.Close, i.period), i.Deficit())), nil
}
