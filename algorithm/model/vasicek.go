package model

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wyfcoding/mcsim/xerrors"
)

// Vasicek 均值回复利率模型 dr = κ(θ - r) dt + σ dW，采用欧拉离散，允许负利率.
type Vasicek struct {
	mu sync.RWMutex
	p  Params
}

// NewVasicek 创建 Vasicek 模型，要求 MeanReversion >= 0 且 Volatility >= 0.
func NewVasicek(p Params) (*Vasicek, error) {
	if err := validateMeanReverting(p); err != nil {
		return nil, err
	}
	return &Vasicek{p: p}, nil
}

func validateMeanReverting(p Params) error {
	if !finite(p.InitialValue, p.MeanReversion, p.LongTermMean, p.Volatility) {
		return xerrors.InvalidParameter("model parameters must be finite")
	}
	if p.MeanReversion < 0 {
		return xerrors.InvalidParameter("mean reversion speed must be non-negative, got %g", p.MeanReversion)
	}
	if p.Volatility < 0 {
		return xerrors.InvalidParameter("volatility must be non-negative, got %g", p.Volatility)
	}
	return nil
}

func (v *Vasicek) Name() string { return "Vasicek" }

func (v *Vasicek) Kind() Kind { return KindVasicek }

func (v *Vasicek) InitialValue() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.p.InitialValue
}

func (v *Vasicek) SimulateStep(current, dt, z float64) float64 {
	p := v.Parameters()
	return current + p.MeanReversion*(p.LongTermMean-current)*dt + p.Volatility*math.Sqrt(dt)*z
}

func (v *Vasicek) SimulatePath(initial float64, steps int, dt float64, draws []float64) (Path, error) {
	if err := validatePathArgs(steps, dt, draws); err != nil {
		return nil, err
	}

	p := v.Parameters()
	diffusion := p.Volatility * math.Sqrt(dt)

	path := make(Path, steps)
	cur := initial
	for i, z := range draws {
		cur += p.MeanReversion*(p.LongTermMean-cur)*dt + diffusion*z
		path[i] = cur
	}
	return path, nil
}

// ExpectedValue E[r_t] = θ + (r0 - θ) e^{-κt}.
func (v *Vasicek) ExpectedValue(t float64) float64 {
	p := v.Parameters()
	return p.LongTermMean + (p.InitialValue-p.LongTermMean)*math.Exp(-p.MeanReversion*t)
}

// Variance Var[r_t] = σ²/(2κ) (1 - e^{-2κt}).
func (v *Vasicek) Variance(t float64) float64 {
	p := v.Parameters()
	return meanRevertingVariance(p.MeanReversion, p.Volatility, t)
}

func (v *Vasicek) Parameters() Params {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.p
}

func (v *Vasicek) SetParameters(p Params) error {
	if err := validateMeanReverting(p); err != nil {
		return err
	}
	v.mu.Lock()
	v.p = p
	v.mu.Unlock()
	return nil
}

// StationaryMean 长期均值 θ.
func (v *Vasicek) StationaryMean() float64 {
	return v.Parameters().LongTermMean
}

// StationaryVariance 平稳方差 σ²/(2κ)，κ = 0 时过程不平稳，返回 +Inf.
func (v *Vasicek) StationaryVariance() float64 {
	p := v.Parameters()
	if p.MeanReversion == 0 {
		return math.Inf(1)
	}
	return p.Volatility * p.Volatility / (2 * p.MeanReversion)
}

// ProbabilityBelow 时刻 t 利率低于 threshold 的解析概率.
func (v *Vasicek) ProbabilityBelow(threshold, t float64) float64 {
	mean := v.ExpectedValue(t)
	sd := math.Sqrt(v.Variance(t))
	if sd == 0 {
		if mean < threshold {
			return 1
		}
		return 0
	}
	return distuv.Normal{Mu: mean, Sigma: sd}.CDF(threshold)
}

// ProbabilityAbove 时刻 t 利率高于 threshold 的解析概率.
func (v *Vasicek) ProbabilityAbove(threshold, t float64) float64 {
	return 1 - v.ProbabilityBelow(threshold, t)
}

// CanProduceNegative 报告模型是否可能产生负利率. 高斯过程只要存在扩散项即可能为负.
func (v *Vasicek) CanProduceNegative() bool {
	p := v.Parameters()
	return p.Volatility > 0 || p.InitialValue < 0 || p.LongTermMean < 0
}
