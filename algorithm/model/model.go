// Package model 定义单因子随机过程模型：几何布朗运动、Vasicek 与 Hull-White.
//
// 模型参数受读写锁保护，SimulatePath 在开始时快照参数，
// 因此并发的路径推进不会观察到被部分替换的参数集.
package model

import (
	"math"
	"strings"

	"github.com/wyfcoding/mcsim/xerrors"
)

// Kind 模型类型.
type Kind string

const (
	KindGBM       Kind = "gbm"
	KindVasicek   Kind = "vasicek"
	KindHullWhite Kind = "hull_white"
)

// ParseKind 解析模型类型.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gbm", "geometric_brownian_motion":
		return KindGBM, nil
	case "vasicek":
		return KindVasicek, nil
	case "hull_white", "hullwhite", "hull-white":
		return KindHullWhite, nil
	default:
		return "", xerrors.InvalidArgument("unknown model type %q", s)
	}
}

// Params 模型参数. 各模型只使用其中一部分字段:
// GBM 使用 InitialValue/Drift/Volatility；Vasicek 使用 InitialValue/MeanReversion/LongTermMean/Volatility；
// Hull-White 使用 InitialValue/MeanReversion/Volatility，LongTermMean 决定默认 θ(t).
type Params struct {
	InitialValue  float64 `json:"initial_value" yaml:"initial_value"`
	Drift         float64 `json:"drift" yaml:"drift"`
	MeanReversion float64 `json:"mean_reversion" yaml:"mean_reversion"`
	LongTermMean  float64 `json:"long_term_mean" yaml:"long_term_mean"`
	Volatility    float64 `json:"volatility" yaml:"volatility"`
}

// Path 单条模拟路径，Path[i] 为第 i+1 次增量后的状态，不含初始值.
type Path []float64

// Final 返回路径终值，空路径返回 NaN.
func (p Path) Final() float64 {
	if len(p) == 0 {
		return math.NaN()
	}
	return p[len(p)-1]
}

// Model 随机过程模型.
type Model interface {
	Name() string
	Kind() Kind
	InitialValue() float64
	// SimulateStep 以标准正态样本 z 推进一步.
	SimulateStep(current, dt, z float64) float64
	// SimulatePath 从 initial 出发推进 steps 步，draws 长度必须等于 steps.
	SimulatePath(initial float64, steps int, dt float64, draws []float64) (Path, error)
	// ExpectedValue 时刻 t 的解析期望.
	ExpectedValue(t float64) float64
	// Variance 时刻 t 的解析方差.
	Variance(t float64) float64
	Parameters() Params
	// SetParameters 整体替换参数并重新校验，失败时保留原参数.
	SetParameters(p Params) error
}

// New 按类型构造模型.
func New(kind Kind, p Params) (Model, error) {
	switch kind {
	case KindGBM:
		return NewGBM(p)
	case KindVasicek:
		return NewVasicek(p)
	case KindHullWhite:
		return NewHullWhite(p)
	default:
		return nil, xerrors.InvalidArgument("unknown model type %q", string(kind))
	}
}

func validatePathArgs(steps int, dt float64, draws []float64) error {
	if steps <= 0 {
		return xerrors.InvalidArgument("steps must be positive, got %d", steps)
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return xerrors.InvalidArgument("dt must be positive, got %g", dt)
	}
	if len(draws) != steps {
		return xerrors.InvalidArgument("draws length %d does not match steps %d", len(draws), steps)
	}
	return nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// meanRevertingVariance 返回 OU 过程方差 σ²/(2κ)(1-e^{-2κt})，κ=0 时退化为 σ²t.
func meanRevertingVariance(kappa, sigma, t float64) float64 {
	if t <= 0 {
		return 0
	}
	if kappa == 0 {
		return sigma * sigma * t
	}
	return sigma * sigma / (2 * kappa) * (1 - math.Exp(-2*kappa*t))
}
