// ABOUTME: Streaming statistics helpers for the aggregation engine.
// ABOUTME: Welford accumulation, sample stddev, and PERCENTILE_CONT-style interpolation.
package aggregate

import (
	"math"
	"sort"
)

// welford accumulates mean and variance in one pass without keeping samples.
type welford struct {
	n    int
	mean float64
	m2   float64
}

func (w *welford) add(x float64) {
	w.n++
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (x - w.mean)
}

// stddev returns the sample standard deviation (n-1 denominator, matching
// SQL STDDEV). Below two samples there is no spread to estimate and the
// result is nil rather than zero or an error.
func (w *welford) stddev() *float64 {
	if w.n < 2 {
		return nil
	}
	s := math.Sqrt(w.m2 / float64(w.n-1))
	return &s
}

// mean returns the arithmetic mean of the values seen so far.
func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentileCont computes the p-th percentile with linear interpolation
// between closest ranks, the PERCENTILE_CONT semantics. values must be
// non-empty; it is sorted in place.
func percentileCont(values []float64, p float64) float64 {
	sort.Float64s(values)
	if len(values) == 1 {
		return values[0]
	}
	pos := p * float64(len(values)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return values[lower]
	}
	frac := pos - float64(lower)
	return values[lower] + frac*(values[upper]-values[lower])
}

// round keeps the stored baselines at a fixed precision.
func round(x float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(x*scale) / scale
}

func roundPtr(x *float64, decimals int) *float64 {
	if x == nil {
		return nil
	}
	r := round(*x, decimals)
	return &r
}
