package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

var oneToTen = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

func TestMeanAndStdDev(t *testing.T) {
	assert.Equal(t, 5.5, Mean(oneToTen))
	assert.InDelta(t, 3.0277, StandardDeviation(oneToTen), 1e-4)
	assert.InDelta(t, 9.1667, Variance(oneToTen), 1e-4)
}

func TestEmptyAndSmallInputs(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.Zero(t, Median(nil))
	assert.Zero(t, Variance([]float64{3}))
	assert.Zero(t, Skewness([]float64{1, 2}))
	assert.Zero(t, Kurtosis([]float64{1, 2, 3}))
	assert.Zero(t, Quantile(nil, 0.5))
	assert.Equal(t, Summary{}, Analyze(nil))
	assert.Equal(t, Interval{}, ConfidenceInterval([]float64{1}, 0.95))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 5.5, Median(oneToTen))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
}

func TestSkewnessKurtosis(t *testing.T) {
	assert.InDelta(t, 0, Skewness(oneToTen), 1e-12)
	assert.Zero(t, Skewness([]float64{2, 2, 2, 2}))
	assert.Zero(t, Kurtosis([]float64{2, 2, 2, 2}))

	right := []float64{1, 1, 1, 1, 1, 1, 10}
	assert.Greater(t, Skewness(right), 0.0)

	// 均匀离散样本的超额峰度为负.
	assert.Less(t, Kurtosis(oneToTen), 0.0)
}

func TestQuantile(t *testing.T) {
	data := []float64{10, 20, 30, 40, 50}
	assert.Equal(t, 10.0, Quantile(data, 0))
	assert.Equal(t, 50.0, Quantile(data, 1))
	assert.Equal(t, 30.0, Quantile(data, 0.5))
	assert.Equal(t, 15.0, Quantile(data, 0.125))

	// 越界概率被截断而不是报错.
	assert.Equal(t, 10.0, Quantile(data, -0.5))
	assert.Equal(t, 50.0, Quantile(data, 1.5))
}

func TestQuantileMonotone(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Float64Range(-1e6, 1e6), 1, 200).Draw(t, "data")
		p1 := rapid.Float64Range(-0.2, 1.2).Draw(t, "p1")
		p2 := rapid.Float64Range(-0.2, 1.2).Draw(t, "p2")
		if p1 > p2 {
			p1, p2 = p2, p1
		}
		if q1, q2 := Quantile(data, p1), Quantile(data, p2); q1 > q2 {
			t.Fatalf("quantile(%g)=%g > quantile(%g)=%g", p1, q1, p2, q2)
		}
	})
}

func TestConfidenceInterval(t *testing.T) {
	ci := ConfidenceInterval(oneToTen, 0.95)
	half := 1.96 * StandardDeviation(oneToTen) / math.Sqrt(10)
	assert.InDelta(t, 5.5-half, ci.Lower, 1e-12)
	assert.InDelta(t, 5.5+half, ci.Upper, 1e-12)

	assert.Equal(t, Interval{}, ConfidenceInterval(oneToTen, 1))
	assert.Equal(t, Interval{}, ConfidenceInterval(oneToTen, 0))

	assert.InDelta(t, 1.645, ZScore(0.90), 1e-12)
	assert.InDelta(t, 1.4395, ZScore(0.85), 1e-3)
	assert.InDelta(t, 2.1701, ZScore(0.97), 1e-3)

	ci99 := ConfidenceInterval(oneToTen, 0.99)
	assert.Less(t, ci99.Lower, ci.Lower)
}

func TestNaNPropagates(t *testing.T) {
	data := []float64{1, math.NaN(), 3}
	assert.True(t, math.IsNaN(Mean(data)))
	assert.True(t, math.IsNaN(Variance(data)))
	assert.True(t, math.IsNaN(Analyze(data).Min))
}

func TestAnalyze(t *testing.T) {
	s := Analyze(oneToTen)
	assert.Equal(t, 10, s.Count)
	assert.Equal(t, 5.5, s.Mean)
	assert.Equal(t, 5.5, s.Median)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 10.0, s.Max)
	assert.Equal(t, 3.25, s.Q25)
	assert.Equal(t, 5.5, s.Q50)
	assert.Equal(t, 7.75, s.Q75)
	assert.InDelta(t, s.StdDev*s.StdDev, s.Variance, 1e-12)
	assert.Less(t, s.CI99.Lower, s.CI95.Lower)
}
