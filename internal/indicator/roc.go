package indicator

import talib "github.com/markcheno/go-talib"

// rocIndicator is the percentage change of close over period bars.
// A zero base reads 0.
type rocIndicator struct {
	key    string
	period int
}

func (i rocIndicator) Name() string     { return i.key }
func (i rocIndicator) Fields() []string { return nil }
func (i rocIndicator) Deficit() int     { return i.period }

func (i rocIndicator) Compute(in Inputs) (Series, error) {
	n := len(in.Close)
	if n <= i.Deficit() {
		return empty(i.key, nil, n), nil
	}
	return series(i.key, nil, padded(talib.Roc(in.Close, i.period), i.Deficit())), nil
}
