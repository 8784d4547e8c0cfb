package metrics

import (
	"math"
	"slices"
)

// Median returns the middle value of vals, averaging the two middle values
// for an even count. vals is not modified. An empty slice returns 0.
func Median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	s := slices.Clone(vals)
	slices.Sort(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// StdDev is the sample standard deviation (n-1 denominator). Fewer than two
// values have no spread and return 0.
func StdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := Mean(vals)
	var ss float64
	for _, v := range vals {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}

// MinMax returns the smallest and largest values.
func MinMax(vals []float64) (lo, hi float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	return slices.Min(vals), slices.Max(vals)
}

// Percentile returns the p-th percentile (0..100) using linear
// interpolation between closest ranks.
func Percentile(vals []float64, p float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	s := slices.Clone(vals)
	slices.Sort(s)
	switch {
	case p <= 0:
		return s[0]
	case p >= 100:
		return s[n-1]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return s[lo] + (s[hi]-s[lo])*frac
}

// Correlation is the Pearson correlation of xs and ys. ok is false when the
// slices differ in length, hold fewer than two points, or either has no
// variance.
func Correlation(xs, ys []float64) (r float64, ok bool) {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0, false
	}
	mx, my := Mean(xs), Mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	return sxy / math.Sqrt(sxx*syy), true
}
