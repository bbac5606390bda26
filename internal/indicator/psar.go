package indicator

import talib "github.com/markcheno/go-talib"

// psarIndicator is Wilder's Parabolic SAR. The opening trend follows the
// first bar's directional movement and values start on the second bar.
type psarIndicator struct {
	key       string
	step, max float64
}

func (i psarIndicator) Name() string     { return i.key }
func (i psarIndicator) Fields() []string { return nil }
func (i psarIndicator) Deficit() int     { return 1 }

func (i psarIndicator) Compute(in Inputs) (Series, error) {
	n, err := sameLength(i.key, in.High, in.Low)
	if err != nil {
		return Series{}, err
	}
	if n <= i.Deficit() {
		return empty(i.key, nil, n), nil
	}
	return series(i.key, nil, padded(talib.Sar(in.High, in.Low, i.step, i.max), i.Deficit())), nil
}
