// Package convergence 提供蒙特卡洛估计的收敛诊断：标准误、批均值、有效样本量与多链 R-hat.
package convergence

import (
	"math"

	"github.com/wyfcoding/mcsim/algorithm/stats"
	"github.com/wyfcoding/mcsim/xerrors"
)

const (
	// maxAutocorrLag 有效样本量估计使用的最大滞后阶数.
	maxAutocorrLag = 10
	// nearZeroMean 均值绝对值低于此阈值时改用绝对标准误判断收敛.
	nearZeroMean = 1e-10
)

// StandardError 均值标准误 s/√n，n < 2 时为 0.
func StandardError(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	return stats.StandardDeviation(data) / math.Sqrt(float64(n))
}

// BatchMeans 将数据划分为 numBatches 个等长连续批次并返回各批均值，尾部余数被丢弃.
func BatchMeans(data []float64, numBatches int) []float64 {
	if numBatches <= 0 || len(data) < numBatches {
		return nil
	}
	size := len(data) / numBatches
	means := make([]float64, numBatches)
	for b := range numBatches {
		means[b] = stats.Mean(data[b*size : (b+1)*size])
	}
	return means
}

func batchMeansError(data []float64, numBatches int) float64 {
	means := BatchMeans(data, numBatches)
	if len(means) < 2 {
		return 0
	}
	return stats.StandardDeviation(means) / math.Sqrt(float64(len(means)))
}

// CheckConvergence 批均值法收敛判断：批均值标准误相对批均值的均值小于 tolerance 时视为收敛.
// 不足一批的尾部数据不参与判断，批均值的均值接近 0 时使用绝对标准误.
// 数据不足 (numBatches < 2 或 n < 2·numBatches) 时直接返回 false，不校验 tolerance.
func CheckConvergence(data []float64, numBatches int, tolerance float64) (bool, error) {
	if numBatches < 2 || len(data) < 2*numBatches {
		return false, nil
	}
	if !(tolerance > 0) {
		return false, xerrors.InvalidArgument("tolerance must be positive, got %g", tolerance)
	}

	means := BatchMeans(data, numBatches)
	se := stats.StandardDeviation(means) / math.Sqrt(float64(len(means)))
	mean := math.Abs(stats.Mean(means))
	if mean > nearZeroMean {
		return se/mean < tolerance, nil
	}
	return se < tolerance, nil
}

// EstimateConvergenceRate 对批次数 2..n/minBatchSize 依次计算批均值标准误.
// minBatchSize < 10 或 n < 2·minBatchSize 时返回空序列. 不强制单调.
func EstimateConvergenceRate(data []float64, minBatchSize int) []float64 {
	if minBatchSize < 10 || len(data) < 2*minBatchSize {
		return []float64{}
	}
	maxBatches := len(data) / minBatchSize
	out := make([]float64, 0, maxBatches-1)
	for nb := 2; nb <= maxBatches; nb++ {
		out = append(out, batchMeansError(data, nb))
	}
	return out
}

// Autocorrelation 滞后 lag 的样本自相关 (以样本方差归一化)，方差为 0 或 lag 越界时返回 0.
func Autocorrelation(data []float64, lag int) float64 {
	n := len(data)
	if lag <= 0 || lag >= n {
		return 0
	}
	mean := stats.Mean(data)
	variance := stats.Variance(data)
	if variance == 0 {
		return 0
	}
	return autocorr(data, mean, variance, lag)
}

func autocorr(data []float64, mean, variance float64, lag int) float64 {
	count := len(data) - lag
	var cov float64
	for i := range count {
		cov += (data[i] - mean) * (data[i+lag] - mean)
	}
	return cov / (float64(count) * variance)
}

// EffectiveSampleSize 有效样本量 n/(1+2ρ̄)，ρ̄ 为滞后 1..min(10,n/2) 中正自相关的平均值，结果不超过 n.
// 自相关以样本方差 (n-1) 归一化.
func EffectiveSampleSize(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return float64(n)
	}

	mean := stats.Mean(data)
	variance := stats.Variance(data)
	if variance == 0 {
		return float64(n)
	}

	maxLag := min(maxAutocorrLag, n/2)
	var sum float64
	var positive int
	for lag := 1; lag <= maxLag; lag++ {
		if rho := autocorr(data, mean, variance, lag); rho > 0 {
			sum += rho
			positive++
		}
	}
	var avg float64
	if positive > 0 {
		avg = sum / float64(positive)
	}
	return math.Min(float64(n)/(1+2*avg), float64(n))
}

// MonteCarloStandardError s/√ESS，ESS < 1 时为 0.
func MonteCarloStandardError(data []float64) float64 {
	ess := EffectiveSampleSize(data)
	if ess < 1 {
		return 0
	}
	return stats.StandardDeviation(data) / math.Sqrt(ess)
}

// GelmanRubin 多链潜在尺度缩减因子 R-hat. 需要至少 2 条等长且长度 >= 2 的链.
func GelmanRubin(chains [][]float64) (float64, error) {
	m := len(chains)
	if m < 2 {
		return 0, xerrors.InvalidArgument("need at least 2 chains, got %d", m)
	}
	n := len(chains[0])
	if n < 2 {
		return 0, xerrors.InvalidArgument("chains must have at least 2 samples, got %d", n)
	}

	means := make([]float64, m)
	var w float64
	for i, c := range chains {
		if len(c) != n {
			return 0, xerrors.InvalidArgument("chain %d has %d samples, want %d", i, len(c), n)
		}
		means[i] = stats.Mean(c)
		w += stats.Variance(c)
	}
	w /= float64(m)
	b := float64(n) * stats.Variance(means)

	fn := float64(n)
	varHat := (fn-1)/fn*w + b/fn
	if w == 0 {
		if varHat == 0 {
			return 1, nil
		}
		return math.Inf(1), nil
	}
	return math.Sqrt(varHat / w), nil
}
