package indicator

import talib "github.com/markcheno/go-talib"

// obvIndicator is On-Balance Volume, accumulated from zero starting with
// the second bar. go-talib seeds the total with the first bar's volume,
// which is taken back out.
type obvIndicator struct {
	key string
}

func (i obvIndicator) Name() string     { return i.key }
func (i obvIndicator) Fields() []string { return nil }
func (i obvIndicator) Deficit() int     { return 1 }

func (i obvIndicator) Compute(in Inputs) (Series, error) {
	n, err := sameLength(i.key, in.Close, in.Volume)
	if err != nil {
		return Series{}, err
	}
	if n <= i.Deficit() {
		return empty(i.key, nil, n), nil
	}
	obv := talib.Obv(in.Close, in.Volume)
	base := in.Volume[0]
	l := derive(1, n, func(j int) float64 { return obv[j] - base })
	return series(i.key, nil, l), nil
}
