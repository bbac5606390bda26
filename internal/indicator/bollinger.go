package indicator

import talib "github.com/markcheno/go-talib"

var bollingerFields = []string{"middle", "upper", "lower", "pb"}

// bollingerIndicator is an SMA band of +/- k population standard deviations.
// pb is the close's position inside the band (0 at lower, 1 at upper);
// a collapsed band reads 0.5.
type bollingerIndicator struct {
	key    string
	period int
	k      float64
}

func (i bollingerIndicator) Name() string     { return i.key }
func (i bollingerIndicator) Fields() []string { return bollingerFields }
func (i bollingerIndicator) Deficit() int     { return i.period - 1 }

func (i bollingerIndicator) Compute(in Inputs) (Series, error) {
	n := len(in.Close)
	if n <= i.Deficit() {
		return empty(i.key, bollingerFields, n), nil
	}
	upperBand, middleBand, lowerBand := talib.BBands(in.Close, i.period, i.k, i.k, talib.SMA)
	mid := padded(middleBand, i.Deficit())
	upper := padded(upperBand, i.Deficit())
	lower := padded(lowerBand, i.Deficit())
	pb := derive(i.Deficit(), n, func(j int) float64 {
		u, l := upper.at(j), lower.at(j)
		if u <= l {
			return 0.5
		}
		return (in.Close[j] - l) / (u - l)
	})
	return series(i.key, bollingerFields, mid, upper, lower, pb), nil
}
