package sim

import (
	"slices"

	"github.com/wyfcoding/mcsim/algorithm/finance"
	"github.com/wyfcoding/mcsim/algorithm/stats"
	"github.com/wyfcoding/mcsim/xerrors"
)

// CalculateRiskMetrics 计算 VaR、CVaR、波动率与夏普比率 (年化无风险利率 3%，年化 252 期).
func (s *Simulator) CalculateRiskMetrics(returns []float64, confidence float64) (finance.Metrics, error) {
	return CalculateRiskMetrics(returns, confidence)
}

// CalculatePercentiles 计算插值分位数.
func (s *Simulator) CalculatePercentiles(values, levels []float64) ([]float64, error) {
	return CalculatePercentiles(values, levels)
}

// CalculateRiskMetrics 见 Simulator.CalculateRiskMetrics.
func CalculateRiskMetrics(returns []float64, confidence float64) (finance.Metrics, error) {
	return finance.NewRiskCalculator(finance.DefaultRiskFreeRate, finance.DefaultPeriodsPerYear).Calculate(returns, confidence)
}

// CalculatePercentiles 按 levels 计算 values 的分位数. 与 stats.Quantile 不同，
// 这里的 level 必须在 [0,1] 内，否则返回 InvalidArgument. values 为空时结果全为 0.
func CalculatePercentiles(values, levels []float64) ([]float64, error) {
	for _, p := range levels {
		if !(p >= 0 && p <= 1) {
			return nil, xerrors.InvalidArgument("percentile level must be in [0,1], got %g", p)
		}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	out := make([]float64, len(levels))
	for i, p := range levels {
		out[i] = stats.QuantileSorted(sorted, p)
	}
	return out, nil
}
