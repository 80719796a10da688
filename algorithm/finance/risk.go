// Package finance 提供基于历史模拟的风险度量：VaR、CVaR、波动率、夏普比率、最大回撤与组合风险.
package finance

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/wyfcoding/mcsim/algorithm/stats"
	"github.com/wyfcoding/mcsim/xerrors"
)

const (
	// DefaultPeriodsPerYear 年化所用的默认期数 (交易日).
	DefaultPeriodsPerYear = 252
	// DefaultRiskFreeRate 夏普比率默认使用的年化无风险利率.
	DefaultRiskFreeRate = 0.03
)

// Metrics 一组收益率的风险指标.
type Metrics struct {
	VaR        float64 `json:"var" yaml:"var"`
	CVaR       float64 `json:"cvar" yaml:"cvar"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
	Sharpe     float64 `json:"sharpe" yaml:"sharpe"`
}

// RiskCalculator 绑定无风险利率与年化期数的风险计算器.
type RiskCalculator struct {
	RiskFreeRate   float64
	PeriodsPerYear float64
}

// NewRiskCalculator 创建风险计算器，periodsPerYear <= 0 时使用 252.
func NewRiskCalculator(riskFreeRate, periodsPerYear float64) *RiskCalculator {
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}
	return &RiskCalculator{RiskFreeRate: riskFreeRate, PeriodsPerYear: periodsPerYear}
}

// Calculate 一次性计算 VaR、CVaR、波动率与夏普比率.
func (c *RiskCalculator) Calculate(returns []float64, confidence float64) (Metrics, error) {
	v, cv, err := calculateTail(returns, confidence)
	if err != nil {
		return Metrics{}, err
	}
	sharpe, err := CalculateSharpeRatio(returns, c.RiskFreeRate, c.PeriodsPerYear)
	if err != nil {
		return Metrics{}, err
	}
	return Metrics{
		VaR:        v,
		CVaR:       cv,
		Volatility: CalculateVolatility(returns),
		Sharpe:     sharpe,
	}, nil
}

func validateConfidence(confidence float64) error {
	if !(confidence > 0 && confidence < 1) {
		return xerrors.InvalidArgument("confidence level must be in (0,1), got %g", confidence)
	}
	return nil
}

// varIndex 历史模拟 VaR 所在的升序秩 ⌊(1-c)·n⌋，截断到最后一个下标.
func varIndex(n int, confidence float64) int {
	idx := int(math.Floor((1 - confidence) * float64(n)))
	return min(max(idx, 0), n-1)
}

func calculateTail(returns []float64, confidence float64) (valueAtRisk, cvar float64, err error) {
	if err := validateConfidence(confidence); err != nil {
		return 0, 0, err
	}
	if len(returns) == 0 {
		return 0, 0, nil
	}

	sorted := slices.Clone(returns)
	slices.Sort(sorted)
	idx := varIndex(len(sorted), confidence)

	var sum float64
	for _, r := range sorted[:idx+1] {
		sum += r
	}
	return sorted[idx], sum / float64(idx+1), nil
}

// CalculateVaR 历史模拟 VaR，以收益率 (通常为负) 表示而非损失幅度.
func CalculateVaR(returns []float64, confidence float64) (float64, error) {
	v, _, err := calculateTail(returns, confidence)
	return v, err
}

// CalculateCVaR 条件 VaR：升序排列后不超过 VaR 秩的所有收益率的均值.
func CalculateCVaR(returns []float64, confidence float64) (float64, error) {
	_, cv, err := calculateTail(returns, confidence)
	return cv, err
}

// CalculateVolatility 收益率样本标准差.
func CalculateVolatility(returns []float64) float64 {
	return stats.StandardDeviation(returns)
}

// CalculateSharpeRatio 年化夏普比率 (mean·P - rf) / (sd·√P). 波动率为 0 时返回 0.
func CalculateSharpeRatio(returns []float64, riskFreeRate, periodsPerYear float64) (float64, error) {
	if !(periodsPerYear > 0) {
		return 0, xerrors.InvalidArgument("periods per year must be positive, got %g", periodsPerYear)
	}
	vol := stats.StandardDeviation(returns) * math.Sqrt(periodsPerYear)
	if vol == 0 {
		return 0, nil
	}
	annualReturn := stats.Mean(returns) * periodsPerYear
	return (annualReturn - riskFreeRate) / vol, nil
}

// CalculateMaxDrawdown 最大回撤 max (peak - p)/peak，peak 为历史最高价.
// 峰值非正时回撤无定义，该点被跳过.
func CalculateMaxDrawdown(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	peak := prices[0]
	var maxDrawdown float64
	for _, p := range prices {
		if p > peak {
			peak = p
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// CalculateBeta 资产相对市场的 β = Cov(asset, market) / Var(market).
func CalculateBeta(asset, market []float64) (float64, error) {
	if len(asset) != len(market) {
		return 0, xerrors.ErrDimMismatch.WithDetail("asset has %d returns, market has %d", len(asset), len(market))
	}
	if len(asset) < 2 {
		return 0, nil
	}
	v := stat.Variance(market, nil)
	if v == 0 {
		return 0, nil
	}
	return stat.Covariance(asset, market, nil) / v, nil
}
