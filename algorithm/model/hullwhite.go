package model

import (
	"math"
	"sync"

	"github.com/wyfcoding/mcsim/xerrors"
)

// ThetaFunc Hull-White 模型的时变漂移项 θ(t).
type ThetaFunc func(t float64) float64

// thetaIntegrationSteps 自定义 θ(t) 时期望值的 Simpson 积分区间数 (偶数).
const thetaIntegrationSteps = 1000

// HullWhite 单因子 Hull-White 模型 dr = (θ(t) - a r) dt + σ dW.
// 未设置 θ(t) 时使用常数 a·LongTermMean，此时与 Vasicek 等价.
type HullWhite struct {
	mu    sync.RWMutex
	p     Params
	theta ThetaFunc
}

// NewHullWhite 创建 Hull-White 模型.
func NewHullWhite(p Params) (*HullWhite, error) {
	if err := validateMeanReverting(p); err != nil {
		return nil, err
	}
	return &HullWhite{p: p}, nil
}

func (h *HullWhite) Name() string { return "HullWhite" }

func (h *HullWhite) Kind() Kind { return KindHullWhite }

func (h *HullWhite) InitialValue() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.p.InitialValue
}

// SetThetaFunction 原子替换 θ(t)，nil 返回 InvalidArgument.
func (h *HullWhite) SetThetaFunction(fn ThetaFunc) error {
	if fn == nil {
		return xerrors.InvalidArgument("theta function must not be nil")
	}
	h.mu.Lock()
	h.theta = fn
	h.mu.Unlock()
	return nil
}

// ResetThetaFunction 恢复默认常数 θ(t) = a·LongTermMean.
func (h *HullWhite) ResetThetaFunction() {
	h.mu.Lock()
	h.theta = nil
	h.mu.Unlock()
}

// snapshot 返回一致的参数与 θ(t)，custom 表示 θ(t) 由调用方设置.
func (h *HullWhite) snapshot() (p Params, fn ThetaFunc, custom bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, fn = h.p, h.theta
	if fn != nil {
		return p, fn, true
	}
	c := p.MeanReversion * p.LongTermMean
	return p, func(float64) float64 { return c }, false
}

// Theta 返回 θ(t) 当前值.
func (h *HullWhite) Theta(t float64) float64 {
	_, fn, _ := h.snapshot()
	return fn(t)
}

// SimulateStep 在 t = 0 处求值 θ.
func (h *HullWhite) SimulateStep(current, dt, z float64) float64 {
	p, fn, _ := h.snapshot()
	return current + (fn(0)-p.MeanReversion*current)*dt + p.Volatility*math.Sqrt(dt)*z
}

// SimulatePath 第 i 步使用 θ(i·dt).
func (h *HullWhite) SimulatePath(initial float64, steps int, dt float64, draws []float64) (Path, error) {
	if err := validatePathArgs(steps, dt, draws); err != nil {
		return nil, err
	}

	p, fn, _ := h.snapshot()
	diffusion := p.Volatility * math.Sqrt(dt)

	path := make(Path, steps)
	cur := initial
	for i, z := range draws {
		t := float64(i) * dt
		cur += (fn(t)-p.MeanReversion*cur)*dt + diffusion*z
		path[i] = cur
	}
	return path, nil
}

// ExpectedValue E[r_t] = r0 e^{-at} + ∫₀ᵗ e^{-a(t-s)} θ(s) ds.
// 默认 θ 时使用闭式解 θ/a + (r0 - θ/a) e^{-at}.
func (h *HullWhite) ExpectedValue(t float64) float64 {
	p, fn, custom := h.snapshot()
	a := p.MeanReversion
	if t <= 0 {
		return p.InitialValue
	}
	if !custom {
		if a == 0 {
			return p.InitialValue
		}
		return p.LongTermMean + (p.InitialValue-p.LongTermMean)*math.Exp(-a*t)
	}

	integrand := func(s float64) float64 { return math.Exp(-a*(t-s)) * fn(s) }
	return p.InitialValue*math.Exp(-a*t) + simpson(integrand, 0, t, thetaIntegrationSteps)
}

func (h *HullWhite) Variance(t float64) float64 {
	p := h.Parameters()
	return meanRevertingVariance(p.MeanReversion, p.Volatility, t)
}

func (h *HullWhite) Parameters() Params {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.p
}

func (h *HullWhite) SetParameters(p Params) error {
	if err := validateMeanReverting(p); err != nil {
		return err
	}
	h.mu.Lock()
	h.p = p
	h.mu.Unlock()
	return nil
}

func simpson(f func(float64) float64, a, b float64, n int) float64 {
	hStep := (b - a) / float64(n)
	sum := f(a) + f(b)
	for i := 1; i < n; i++ {
		x := a + float64(i)*hStep
		if i%2 == 1 {
			sum += 4 * f(x)
		} else {
			sum += 2 * f(x)
		}
	}
	return sum * hStep / 3
}
