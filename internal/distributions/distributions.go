package distributions

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// StatisticalDistributions provides unified access to the reference
// distributions the analyzers test against
type StatisticalDistributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *StatisticalDistributions {
	return &StatisticalDistributions{}
}

// TTestPValue computes the two-tailed p-value of a t statistic. Degrees of
// freedom may be fractional (Welch).
func (sd *StatisticalDistributions) TTestPValue(tStatistic float64, df float64) float64 {
	if df <= 0 || math.IsNaN(tStatistic) {
		return math.NaN()
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return math.Min(1, 2*tDist.Survival(math.Abs(tStatistic)))
}

// TQuantile is the inverse CDF of Student's t
func (sd *StatisticalDistributions) TQuantile(p float64, df float64) float64 {
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(p)
}

// CorrelationPValue computes the p-value of a Pearson correlation under H0: rho = 0
func (sd *StatisticalDistributions) CorrelationPValue(correlation float64, sampleSize int) float64 {
	if sampleSize < 3 || math.Abs(correlation) >= 1 {
		return math.NaN()
	}
	df := float64(sampleSize - 2)
	tStatistic := CorrelationT(correlation, sampleSize)
	return sd.TTestPValue(tStatistic, df)
}

// CorrelationT transforms r to its t statistic on n-2 degrees of freedom
func CorrelationT(correlation float64, sampleSize int) float64 {
	df := float64(sampleSize - 2)
	return correlation * math.Sqrt(df/(1-correlation*correlation))
}

// FTestPValue computes the upper-tail p-value of an F statistic (ANOVA)
func (sd *StatisticalDistributions) FTestPValue(fStatistic float64, df1, df2 float64) float64 {
	if df1 <= 0 || df2 <= 0 || math.IsNaN(fStatistic) {
		return math.NaN()
	}
	return distuv.F{D1: df1, D2: df2}.Survival(fStatistic)
}

// NormalCDF computes cumulative distribution function for standard normal
func (sd *StatisticalDistributions) NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalQuantile computes quantile function for standard normal (inverse CDF)
func (sd *StatisticalDistributions) NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// FisherZInterval is the confidence interval for a correlation via Fisher's z
func (sd *StatisticalDistributions) FisherZInterval(r float64, n int, confLevel float64) (lower, upper float64) {
	if n < 4 || math.Abs(r) >= 1 {
		return math.NaN(), math.NaN()
	}
	z := math.Atanh(r)
	se := 1 / math.Sqrt(float64(n-3))
	crit := sd.NormalQuantile(1 - (1-confLevel)/2)
	return math.Tanh(z - crit*se), math.Tanh(z + crit*se)
}

// Summary holds the sample moments of one group
type Summary struct {
	N        int
	Mean     float64
	Variance float64 // sample variance, n-1 denominator
}

// Describe computes the sample moments of values. Fewer than two values
// leave the variance NaN.
func Describe(values []float64) Summary {
	s := Summary{N: len(values), Mean: math.NaN(), Variance: math.NaN()}
	if len(values) == 0 {
		return s
	}
	s.Mean, _ = stats.Mean(values)
	if len(values) > 1 {
		s.Variance, _ = stats.SampleVariance(values)
	}
	return s
}

// SD is the sample standard deviation
func (s Summary) SD() float64 {
	return math.Sqrt(s.Variance)
}
