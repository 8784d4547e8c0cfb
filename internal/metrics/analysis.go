package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	muerrors "munitax/internal/errors"
)

// OutlierFence is the IQR multiplier beyond which a value is an outlier.
const OutlierFence = 1.5

// Distribution summarises one variable.
type Distribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	IQR    float64 `json:"iqr"`
}

// Describe summarises vals. An empty slice yields the zero Distribution.
func Describe(vals []float64) Distribution {
	if len(vals) == 0 {
		return Distribution{}
	}
	d := Distribution{
		Count:  len(vals),
		Mean:   Mean(vals),
		Median: Median(vals),
		Std:    StdDev(vals),
		Q1:     Percentile(vals, 25),
		Q3:     Percentile(vals, 75),
	}
	d.Min, d.Max = MinMax(vals)
	d.IQR = d.Q3 - d.Q1
	return d
}

// CV is the coefficient of variation, std over mean. A zero mean returns 0.
func (d Distribution) CV() float64 {
	if d.Mean == 0 {
		return 0
	}
	return d.Std / d.Mean
}

// Fences returns the bounds outside which a value is an outlier: k IQRs
// below Q1 and above Q3.
func (d Distribution) Fences(k float64) (lower, upper float64) {
	return d.Q1 - k*d.IQR, d.Q3 + k*d.IQR
}

// Outliers returns the indices of vals outside the k-IQR fences, in input
// order.
func Outliers(vals []float64, k float64) []int {
	lower, upper := Describe(vals).Fences(k)
	var out []int
	for i, v := range vals {
		if v < lower || v > upper {
			out = append(out, i)
		}
	}
	return out
}

// TTest is the result of Welch's two-sample t-test.
type TTest struct {
	N1      int     `json:"n1"`
	N2      int     `json:"n2"`
	Mean1   float64 `json:"mean1"`
	Mean2   float64 `json:"mean2"`
	T       float64 `json:"t"`
	DF      float64 `json:"df"`
	P       float64 `json:"p"`
	CohensD float64 `json:"cohens_d"`
}

// Difference is Mean1 - Mean2.
func (t TTest) Difference() float64 { return t.Mean1 - t.Mean2 }

// Significant reports whether P is below alpha.
func (t TTest) Significant(alpha float64) bool { return t.P < alpha }

// EffectSize labels |CohensD| as small, medium or large.
func (t TTest) EffectSize() string {
	switch d := math.Abs(t.CohensD); {
	case d < 0.5:
		return "small"
	case d < 0.8:
		return "medium"
	default:
		return "large"
	}
}

// WelchTTest compares the means of a and b without assuming equal
// variances. Each sample needs two values and at least one must vary.
func WelchTTest(a, b []float64) (TTest, error) {
	if len(a) < 2 || len(b) < 2 {
		return TTest{}, muerrors.Newf(muerrors.TypeInsufficientData,
			"t-test needs at least 2 values per sample, got %d and %d", len(a), len(b))
	}
	n1, n2 := float64(len(a)), float64(len(b))
	s1, s2 := StdDev(a), StdDev(b)
	v1, v2 := s1*s1/n1, s2*s2/n2
	if v1+v2 == 0 {
		return TTest{}, muerrors.New(muerrors.TypeInsufficientData, "t-test samples have no variance")
	}

	r := TTest{N1: len(a), N2: len(b), Mean1: Mean(a), Mean2: Mean(b)}
	r.T = (r.Mean1 - r.Mean2) / math.Sqrt(v1+v2)
	r.DF = (v1 + v2) * (v1 + v2) / (v1*v1/(n1-1) + v2*v2/(n2-1))
	r.P = 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: r.DF}.CDF(-math.Abs(r.T))
	if pooled := math.Sqrt((s1*s1 + s2*s2) / 2); pooled > 0 {
		r.CohensD = (r.Mean1 - r.Mean2) / pooled
	}
	return r, nil
}

// ANOVA is the result of a one-way analysis of variance.
type ANOVA struct {
	Groups int     `json:"groups"`
	F      float64 `json:"f"`
	DF1    float64 `json:"df1"`
	DF2    float64 `json:"df2"`
	P      float64 `json:"p"`
}

// Significant reports whether P is below alpha.
func (a ANOVA) Significant(alpha float64) bool { return a.P < alpha }

// OneWayANOVA tests whether the group means differ. Every group needs two
// values, there must be at least two groups, and the groups must vary
// internally.
func OneWayANOVA(groups [][]float64) (ANOVA, error) {
	if len(groups) < 2 {
		return ANOVA{}, muerrors.Newf(muerrors.TypeInsufficientData, "ANOVA needs at least 2 groups, got %d", len(groups))
	}
	var (
		total int
		sum   float64
	)
	for i, g := range groups {
		if len(g) < 2 {
			return ANOVA{}, muerrors.Newf(muerrors.TypeInsufficientData, "ANOVA group %d has %d values", i, len(g))
		}
		total += len(g)
		for _, v := range g {
			sum += v
		}
	}
	grand := sum / float64(total)

	var between, within float64
	for _, g := range groups {
		m := Mean(g)
		between += float64(len(g)) * (m - grand) * (m - grand)
		for _, v := range g {
			within += (v - m) * (v - m)
		}
	}
	if within == 0 {
		return ANOVA{}, muerrors.New(muerrors.TypeInsufficientData, "ANOVA groups have no internal variance")
	}

	r := ANOVA{Groups: len(groups), DF1: float64(len(groups) - 1), DF2: float64(total - len(groups))}
	r.F = (between / r.DF1) / (within / r.DF2)
	r.P = 1 - distuv.F{D1: r.DF1, D2: r.DF2}.CDF(r.F)
	return r, nil
}

// CorrelationStrength labels |r| as weak, moderate or strong.
func CorrelationStrength(r float64) string {
	switch a := math.Abs(r); {
	case a < 0.3:
		return "weak"
	case a < 0.7:
		return "moderate"
	default:
		return "strong"
	}
}
