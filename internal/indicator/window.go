package indicator

import "github.com/montanaflynn/stats"

// rolling applies fn to every complete window of p values.
func rolling(values []float64, p int, fn func(w []float64) float64) line {
	n := len(values)
	if n < p {
		return line{start: n}
	}
	out := make([]float64, 0, n-p+1)
	for i := p - 1; i < n; i++ {
		out = append(out, fn(values[i-p+1:i+1]))
	}
	return line{start: p - 1, v: out}
}

// derive builds a line over [start, n) from a per-index function.
func derive(start, n int, fn func(i int) float64) line {
	if start >= n {
		return line{start: n}
	}
	out := make([]float64, 0, n-start)
	for i := start; i < n; i++ {
		out = append(out, fn(i))
	}
	return line{start: start, v: out}
}

// zip combines two lines over the indexes where both are defined.
func zip(a, b line, fn func(x, y float64) float64) line {
	start := a.start
	if b.start > start {
		start = b.start
	}
	return derive(start, a.end(), func(i int) float64 { return fn(a.at(i), b.at(i)) })
}

// highest and lowest read a non-empty window.
func highest(w []float64) float64 {
	m, _ := stats.Max(w)
	return m
}

func lowest(w []float64) float64 {
	m, _ := stats.Min(w)
	return m
}

func sub(x, y float64) float64 { return x - y }
