package indicator

var ichimokuFields = []string{"conversion", "base", "span_a", "span_b"}

// ichimokuIndicator reports the cloud lines at the bar they are computed
// on. Leading spans are not shifted forward.
type ichimokuIndicator struct {
	key                     string
	conversion, base, spanB int
}

func (i ichimokuIndicator) Name() string     { return i.key }
func (i ichimokuIndicator) Fields() []string { return ichimokuFields }

func (i ichimokuIndicator) Deficit() int {
	return max(i.conversion, i.base, i.spanB) - 1
}

func (i ichimokuIndicator) Compute(in Inputs) (Series, error) {
	if _, err := sameLength(i.key, in.High, in.Low); err != nil {
		return Series{}, err
	}
	conv := midpoint(in.High, in.Low, i.conversion)
	base := midpoint(in.High, in.Low, i.base)
	spanA := zip(conv, base, func(c, b float64) float64 { return (c + b) / 2 })
	spanB := midpoint(in.High, in.Low, i.spanB)
	return series(i.key, ichimokuFields, conv, base, spanA, spanB), nil
}

// midpoint is (highest high + lowest low) / 2 over p bars.
func midpoint(high, low []float64, p int) line {
	hh := rolling(high, p, highest)
	ll := rolling(low, p, lowest)
	return zip(hh, ll, func(h, l float64) float64 { return (h + l) / 2 })
}
