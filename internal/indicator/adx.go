package indicator

import talib "github.com/markcheno/go-talib"

var adxFields = []string{"adx", "pdi", "mdi"}

// adxIndicator is Wilder's directional movement system. +DI and -DI start
// at bar period, ADX one smoothing period later.
type adxIndicator struct {
	key    string
	period int
}

func (i adxIndicator) Name() string     { return i.key }
func (i adxIndicator) Fields() []string { return adxFields }
func (i adxIndicator) Deficit() int     { return 2*i.period - 1 }

func (i adxIndicator) Compute(in Inputs) (Series, error) {
	n, err := sameLength(i.key, in.High, in.Low, in.Close)
	if err != nil {
		return Series{}, err
	}
	if n <= i.Deficit() {
		return empty(i.key, adxFields, n), nil
	}
	adx := padded(talib.Adx(in.High, in.Low, in.Close, i.period), i.Deficit())
	pdi := padded(talib.PlusDI(in.High, in.Low, in.Close, i.period), i.period)
	mdi := padded(talib.MinusDI(in.High, in.Low, in.Close, i.period), i.period)
	return series(i.key, adxFields, adx, pdi, mdi), nil
}
