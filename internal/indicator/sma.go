package indicator

// SMA calculates Simple Moving Average over a rolling window.
// Uses a preallocated circular buffer for zero-allocation hot path.
type SMA struct {
	period  int
	buf     []float64 // preallocated circular buffer
	idx     int       // current write position
	count   int       // total values received
	sum     float64
	current float64
}

// NewSMA creates a new SMA with the given period.
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Update(price float64) {
	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = price
	s.sum += price
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.count >= s.period }

// Window returns the last period values, oldest first. Only meaningful once Ready.
func (s *SMA) Window() []float64 {
	out := make([]float64, 0, s.period)
	out = append(out, s.buf[s.idx:]...)
	return append(out, s.buf[:s.idx]...)
}

// smaIndicator is the catalog entry for a simple moving average of closes.
type smaIndicator struct {
	key    string
	period int
}

func (i smaIndicator) Name() string     { return i.key }
func (i smaIndicator) Fields() []string { return nil }
func (i smaIndicator) Deficit() int     { return i.period - 1 }

func (i smaIndicator) Compute(in Inputs) (Series, error) {
	return series(i.key, nil, collect(NewSMA(i.period), in.Close)), nil
}
