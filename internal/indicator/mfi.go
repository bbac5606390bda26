package indicator

import talib "github.com/markcheno/go-talib"

// mfiIndicator is the Money Flow Index: a volume-weighted RSI over typical
// prices. No negative flow reads 100; a window with less than one unit of
// total flow reads 0.
type mfiIndicator struct {
	key    string
	period int
}

func (i mfiIndicator) Name() string     { return i.key }
func (i mfiIndicator) Fields() []string { return nil }
func (i mfiIndicator) Deficit() int     { return i.period }

func (i mfiIndicator) Compute(in Inputs) (Series, error) {
	n, err := sameLength(i.key, in.High, in.Low, in.Close, in.Volume)
	if err != nil {
		return Series{}, err
	}
	if n <= i.Deficit() {
		return empty(i.key, nil, n), nil
	}
	return series(i.key, nil, padded(talib.Mfi(in.High, in.Low, in.Close, in.Volume, i.period), i.Deficit())), nil
}
