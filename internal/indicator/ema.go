package indicator

// EMA calculates Exponential Moving Average.
// O(1) per update, seeded with the SMA of the first period values.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

// NewEMA creates a new EMA with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Update(price float64) {
	e.count++

	if e.count <= e.period {
		// Accumulate for initial SMA seed
		e.sum += price
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}

	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }

type emaIndicator struct {
	key    string
	period int
}

func (i emaIndicator) Name() string     { return i.key }
func (i emaIndicator) Fields() []string { return nil }
func (i emaIndicator) Deficit() int     { return i.period - 1 }

func (i emaIndicator) Compute(in Inputs) (Series, error) {
	return series(i.key, nil, collect(NewEMA(i.period), in.Close)), nil
}
