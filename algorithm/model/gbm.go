package model

import (
	"math"
	"sync"

	"github.com/wyfcoding/mcsim/xerrors"
)

// GBM 几何布朗运动 dS = μS dt + σS dW，离散化采用对数精确解.
type GBM struct {
	mu sync.RWMutex
	p  Params
}

// NewGBM 创建 GBM 模型，要求 InitialValue > 0 且 Volatility >= 0.
func NewGBM(p Params) (*GBM, error) {
	if err := validateGBM(p); err != nil {
		return nil, err
	}
	return &GBM{p: p}, nil
}

func validateGBM(p Params) error {
	if !finite(p.InitialValue, p.Drift, p.Volatility) {
		return xerrors.InvalidParameter("gbm parameters must be finite")
	}
	if p.InitialValue <= 0 {
		return xerrors.InvalidParameter("initial price must be positive, got %g", p.InitialValue)
	}
	if p.Volatility < 0 {
		return xerrors.InvalidParameter("volatility must be non-negative, got %g", p.Volatility)
	}
	return nil
}

func (g *GBM) Name() string { return "GBM" }

func (g *GBM) Kind() Kind { return KindGBM }

func (g *GBM) InitialValue() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.p.InitialValue
}

func (g *GBM) SimulateStep(current, dt, z float64) float64 {
	p := g.Parameters()
	return gbmStep(p.Drift, p.Volatility, current, dt, z)
}

func gbmStep(mu, sigma, current, dt, z float64) float64 {
	return current * math.Exp((mu-0.5*sigma*sigma)*dt+sigma*math.Sqrt(dt)*z)
}

func (g *GBM) SimulatePath(initial float64, steps int, dt float64, draws []float64) (Path, error) {
	if err := validatePathArgs(steps, dt, draws); err != nil {
		return nil, err
	}
	if !(initial > 0) {
		return nil, xerrors.InvalidArgument("initial price must be positive, got %g", initial)
	}

	p := g.Parameters()
	drift := (p.Drift - 0.5*p.Volatility*p.Volatility) * dt
	diffusion := p.Volatility * math.Sqrt(dt)

	path := make(Path, steps)
	cur := initial
	for i, z := range draws {
		cur *= math.Exp(drift + diffusion*z)
		path[i] = cur
	}
	return path, nil
}

// ExpectedValue E[S_t] = S0 e^{μt}.
func (g *GBM) ExpectedValue(t float64) float64 {
	p := g.Parameters()
	return p.InitialValue * math.Exp(p.Drift*t)
}

// Variance Var[S_t] = S0² e^{2μt} (e^{σ²t} - 1).
func (g *GBM) Variance(t float64) float64 {
	p := g.Parameters()
	return p.InitialValue * p.InitialValue * math.Exp(2*p.Drift*t) * (math.Exp(p.Volatility*p.Volatility*t) - 1)
}

func (g *GBM) Parameters() Params {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.p
}

func (g *GBM) SetParameters(p Params) error {
	if err := validateGBM(p); err != nil {
		return err
	}
	g.mu.Lock()
	g.p = p
	g.mu.Unlock()
	return nil
}
