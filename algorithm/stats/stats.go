// Package stats 提供样本描述统计. 空输入返回零值，NaN 按浮点运算规则传播.
package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Interval 置信区间.
type Interval struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Summary 样本统计汇总.
type Summary struct {
	Count    int      `json:"count" yaml:"count"`
	Mean     float64  `json:"mean" yaml:"mean"`
	Median   float64  `json:"median" yaml:"median"`
	StdDev   float64  `json:"std_dev" yaml:"std_dev"`
	Variance float64  `json:"variance" yaml:"variance"`
	Min      float64  `json:"min" yaml:"min"`
	Max      float64  `json:"max" yaml:"max"`
	Skewness float64  `json:"skewness" yaml:"skewness"`
	Kurtosis float64  `json:"kurtosis" yaml:"kurtosis"` // 超额峰度
	Q25      float64  `json:"q25" yaml:"q25"`
	Q50      float64  `json:"q50" yaml:"q50"`
	Q75      float64  `json:"q75" yaml:"q75"`
	CI95     Interval `json:"ci95" yaml:"ci95"`
	CI99     Interval `json:"ci99" yaml:"ci99"`
}

// Mean 算术平均.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// Median 中位数，偶数长度取中间两数的平均.
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return medianSorted(sortedCopy(data))
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Variance 样本方差 (除数 n-1)，n < 2 时为 0.
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// StandardDeviation 样本标准差.
func StandardDeviation(data []float64) float64 {
	return math.Sqrt(Variance(data))
}

// Skewness 偏度 Σ((x-m)/s)³/n，s 为样本标准差. n < 3 或 s = 0 时为 0.
func Skewness(data []float64) float64 {
	m, _ := standardizedMoment(data, 3, 3)
	return m
}

// Kurtosis 超额峰度 Σ((x-m)/s)⁴/n - 3. n < 4 或 s = 0 时为 0.
func Kurtosis(data []float64) float64 {
	m, ok := standardizedMoment(data, 4, 4)
	if !ok {
		return 0
	}
	return m - 3
}

func standardizedMoment(data []float64, order float64, minN int) (float64, bool) {
	n := len(data)
	if n < minN {
		return 0, false
	}
	mean, variance := stat.MeanVariance(data, nil)
	s := math.Sqrt(variance)
	if s == 0 {
		return 0, false
	}
	var sum float64
	for _, x := range data {
		sum += math.Pow((x-mean)/s, order)
	}
	return sum / float64(n), true
}

// Quantile 线性插值分位数，秩为 p·(n-1). p 被截断到 [0,1] 而不是报错.
func Quantile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return QuantileSorted(sortedCopy(data), p)
}

// QuantileSorted 与 Quantile 相同，但要求 sorted 已升序排列.
func QuantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	p = clamp01(p)
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func clamp01(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// z 值表，其他置信水平使用标准正态分位数.
var zTable = map[float64]float64{
	0.80: 1.282,
	0.90: 1.645,
	0.95: 1.96,
	0.99: 2.576,
}

// ZScore 返回双侧置信水平 level 对应的 z 值.
func ZScore(level float64) float64 {
	if z, ok := zTable[level]; ok {
		return z
	}
	return distuv.UnitNormal.Quantile(0.5 + level/2)
}

// ConfidenceInterval 均值的正态近似置信区间 mean ± z·s/√n.
// level 不在 (0,1) 或 n < 2 时返回零区间.
func ConfidenceInterval(data []float64, level float64) Interval {
	n := len(data)
	if n < 2 || !(level > 0 && level < 1) {
		return Interval{}
	}
	mean, variance := stat.MeanVariance(data, nil)
	half := ZScore(level) * math.Sqrt(variance) / math.Sqrt(float64(n))
	return Interval{Lower: mean - half, Upper: mean + half}
}

// Analyze 计算完整的统计汇总.
func Analyze(data []float64) Summary {
	n := len(data)
	if n == 0 {
		return Summary{}
	}

	sorted := sortedCopy(data)
	variance := Variance(data)

	return Summary{
		Count:    n,
		Mean:     Mean(data),
		Median:   medianSorted(sorted),
		StdDev:   math.Sqrt(variance),
		Variance: variance,
		Min:      slices.Min(data),
		Max:      slices.Max(data),
		Skewness: Skewness(data),
		Kurtosis: Kurtosis(data),
		Q25:      QuantileSorted(sorted, 0.25),
		Q50:      QuantileSorted(sorted, 0.50),
		Q75:      QuantileSorted(sorted, 0.75),
		CI95:     ConfidenceInterval(data, 0.95),
		CI99:     ConfidenceInterval(data, 0.99),
	}
}

func sortedCopy(data []float64) []float64 {
	sorted := slices.Clone(data)
	slices.Sort(sorted)
	return sorted
}
