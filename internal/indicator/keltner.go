package indicator

var keltnerFields = []string{"middle", "upper", "lower"}

// keltnerIndicator is an EMA channel of +/- mult ATRs.
type keltnerIndicator struct {
	key       string
	maPeriod  int
	atrPeriod int
	mult      float64
}

func (i keltnerIndicator) Name() string     { return i.key }
func (i keltnerIndicator) Fields() []string { return keltnerFields }
func (i keltnerIndicator) Deficit() int     { return max(i.maPeriod-1, i.atrPeriod) }

func (i keltnerIndicator) Compute(in Inputs) (Series, error) {
	if _, err := sameLength(i.key, in.High, in.Low, in.Close); err != nil {
		return Series{}, err
	}
	mid := collect(NewEMA(i.maPeriod), in.Close)
	atr := averageTrueRange(in.High, in.Low, in.Close, i.atrPeriod)
	upper := zip(mid, atr, func(m, a float64) float64 { return m + i.mult*a })
	lower := zip(mid, atr, func(m, a float64) float64 { return m - i.mult*a })
	return series(i.key, keltnerFields, mid, upper, lower), nil
}
