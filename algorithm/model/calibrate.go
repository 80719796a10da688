package model

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wyfcoding/mcsim/xerrors"
)

// CalibrateGBM 由历史价格估计年化漂移与波动率.
// σ² 为对数收益样本方差乘以 periodsPerYear；μ = 对数收益均值年化 + σ²/2.
// 需要至少 3 个严格为正的价格.
func CalibrateGBM(prices []float64, periodsPerYear float64) (Params, error) {
	if len(prices) < 3 {
		return Params{}, xerrors.InvalidArgument("need at least 3 prices, got %d", len(prices))
	}
	if !(periodsPerYear > 0) {
		return Params{}, xerrors.InvalidArgument("periods per year must be positive, got %g", periodsPerYear)
	}

	logReturns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			return Params{}, xerrors.InvalidArgument("prices must be positive, index %d", i)
		}
		logReturns[i-1] = math.Log(prices[i] / prices[i-1])
	}

	mean, variance := stat.MeanVariance(logReturns, nil)
	sigma2 := variance * periodsPerYear

	return Params{
		InitialValue: prices[len(prices)-1],
		Drift:        mean*periodsPerYear + 0.5*sigma2,
		Volatility:   math.Sqrt(sigma2),
	}, nil
}
