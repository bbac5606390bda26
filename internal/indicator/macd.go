package indicator

var macdFields = []string{"macd", "signal", "histogram"}

// macdIndicator is EMA(fast) - EMA(slow), an EMA signal line over it and
// their difference.
type macdIndicator struct {
	key                string
	fast, slow, signal int
}

func (i macdIndicator) Name() string     { return i.key }
func (i macdIndicator) Fields() []string { return macdFields }
func (i macdIndicator) Deficit() int     { return i.slow - 1 + i.signal - 1 }

func (i macdIndicator) Compute(in Inputs) (Series, error) {
	fast := collect(NewEMA(i.fast), in.Close)
	slow := collect(NewEMA(i.slow), in.Close)
	macd := zip(fast, slow, sub)
	signal := macd.then(NewEMA(i.signal))
	hist := zip(macd, signal, sub)
	return series(i.key, macdFields, macd, signal, hist), nil
}
