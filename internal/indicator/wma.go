package indicator

// WMA calculates a linearly weighted moving average: the newest value has
// weight period, the oldest weight 1.
type WMA struct {
	sma     *SMA // reused as the window buffer
	period  int
	divisor float64
	current float64
}

// NewWMA creates a new WMA with the given period.
func NewWMA(period int) *WMA {
	return &WMA{
		sma:     NewSMA(period),
		period:  period,
		divisor: float64(period*(period+1)) / 2,
	}
}

func (w *WMA) Update(price float64) {
	w.sma.Update(price)
	if !w.sma.Ready() {
		return
	}
	sum := 0.0
	for k, v := range w.sma.Window() {
		sum += float64(k+1) * v
	}
	w.current = sum / w.divisor
}

func (w *WMA) Value() float64 { return w.current }
func (w *WMA) Ready() bool    { return w.sma.Ready() }

type wmaIndicator struct {
	key    string
	period int
}

func (i wmaIndicator) Name() string     { return i.key }
func (i wmaIndicator) Fields() []string { return nil }
func (i wmaIndicator) Deficit() int     { return i.period - 1 }

func (i wmaIndicator) Compute(in Inputs) (Series, error) {
	return series(i.key, nil, collect(NewWMA(i.period), in.Close)), nil
}
