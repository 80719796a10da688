// Package analysis 把一次模拟结果整理为风险、分位数与收敛性指标，并展平成可序列化的报告.
package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/wyfcoding/mcsim/algorithm/convergence"
	"github.com/wyfcoding/mcsim/algorithm/finance"
	"github.com/wyfcoding/mcsim/algorithm/pathgen"
	"github.com/wyfcoding/mcsim/algorithm/sim"
	"github.com/wyfcoding/mcsim/algorithm/stats"
	"github.com/wyfcoding/mcsim/xerrors"
)

const (
	// DefaultRiskFreeRate 夏普比率使用的年化无风险利率.
	DefaultRiskFreeRate = finance.DefaultRiskFreeRate
	// DefaultConvergenceBatches 收敛判定的批次数.
	DefaultConvergenceBatches = 10
	// DefaultConvergenceTolerance 收敛判定的相对容差.
	DefaultConvergenceTolerance = 0.01
)

// DefaultPercentileLevels 默认输出的价格分位数.
var DefaultPercentileLevels = []float64{0.01, 0.05, 0.25, 0.5, 0.75, 0.95, 0.99}

// Option 分析器选项.
type Option func(*Analyzer)

// WithRiskFreeRate 设置年化无风险利率.
func WithRiskFreeRate(rf float64) Option {
	return func(a *Analyzer) { a.riskFreeRate = rf }
}

// WithPeriodsPerYear 设置年化期数.
func WithPeriodsPerYear(n float64) Option {
	return func(a *Analyzer) { a.periodsPerYear = n }
}

// WithPercentileLevels 设置默认分位数水平.
func WithPercentileLevels(levels ...float64) Option {
	return func(a *Analyzer) { a.levels = levels }
}

// WithConvergence 设置收敛判定的批次数与容差.
func WithConvergence(batches int, tolerance float64) Option {
	return func(a *Analyzer) {
		a.batches = batches
		a.tolerance = tolerance
	}
}

// Analyzer 针对单次模拟结果的分析器，只读访问结果.
type Analyzer struct {
	res            *sim.Result
	riskFreeRate   float64
	periodsPerYear float64
	levels         []float64
	batches        int
	tolerance      float64
}

// NewAnalyzer 创建分析器. res 为 nil 或没有终值时返回 InvalidArgument.
func NewAnalyzer(res *sim.Result, opts ...Option) (*Analyzer, error) {
	if res == nil || len(res.FinalValues) == 0 {
		return nil, xerrors.ErrEmptyData.WithDetail("simulation result has no final values")
	}
	a := &Analyzer{
		res:            res,
		riskFreeRate:   DefaultRiskFreeRate,
		periodsPerYear: finance.DefaultPeriodsPerYear,
		levels:         DefaultPercentileLevels,
		batches:        DefaultConvergenceBatches,
		tolerance:      DefaultConvergenceTolerance,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// RiskMetrics 收益率风险指标与保留路径上的最大回撤.
type RiskMetrics struct {
	finance.Metrics `yaml:",inline"`

	Confidence    float64 `json:"confidence" yaml:"confidence"`
	MaxDrawdown   float64 `json:"max_drawdown" yaml:"max_drawdown"`     // 保留路径最大回撤的均值
	WorstDrawdown float64 `json:"worst_drawdown" yaml:"worst_drawdown"` // 保留路径中最大的回撤
}

// RiskMetrics 计算给定置信度下的风险指标.
func (a *Analyzer) RiskMetrics(confidence float64) (RiskMetrics, error) {
	m, err := finance.NewRiskCalculator(a.riskFreeRate, a.periodsPerYear).Calculate(a.res.Returns, confidence)
	if err != nil {
		return RiskMetrics{}, err
	}
	out := RiskMetrics{Metrics: m, Confidence: confidence}

	var sum float64
	var n int
	for _, p := range a.res.Paths {
		if len(p) == 0 {
			continue
		}
		dd := finance.CalculateMaxDrawdown(pathgen.WithInitial(a.res.InitialValue, p))
		sum += dd
		out.WorstDrawdown = max(out.WorstDrawdown, dd)
		n++
	}
	if n > 0 {
		out.MaxDrawdown = sum / float64(n)
	}
	return out, nil
}

// Percentile 一个分位数水平及其取值.
type Percentile struct {
	Level float64 `json:"level" yaml:"level"`
	Value float64 `json:"value" yaml:"value"`
}

// Percentiles 计算终值分位数，不传 levels 时使用默认水平.
func (a *Analyzer) Percentiles(levels ...float64) ([]Percentile, error) {
	if len(levels) == 0 {
		levels = a.levels
	}
	values, err := sim.CalculatePercentiles(a.res.FinalValues, levels)
	if err != nil {
		return nil, err
	}
	out := make([]Percentile, len(levels))
	for i := range levels {
		out[i] = Percentile{Level: levels[i], Value: values[i]}
	}
	return out, nil
}

// Convergence 终值序列的收敛诊断.
type Convergence struct {
	StandardError           float64 `json:"standard_error" yaml:"standard_error"`
	MonteCarloStandardError float64 `json:"mc_standard_error" yaml:"mc_standard_error"`
	EffectiveSampleSize     float64 `json:"effective_sample_size" yaml:"effective_sample_size"`
	Converged               bool    `json:"converged" yaml:"converged"`
}

// Convergence 计算标准误、MCSE、有效样本量，并用批均值法判定是否收敛.
func (a *Analyzer) Convergence() (Convergence, error) {
	data := a.res.FinalValues
	ok, err := convergence.CheckConvergence(data, a.batches, a.tolerance)
	if err != nil {
		return Convergence{}, err
	}
	return Convergence{
		StandardError:           convergence.StandardError(data),
		MonteCarloStandardError: convergence.MonteCarloStandardError(data),
		EffectiveSampleSize:     convergence.EffectiveSampleSize(data),
		Converged:               ok,
	}, nil
}

// Probability 终值不低于 target 的路径比例.
func (a *Analyzer) Probability(target float64) float64 {
	var hit int
	for _, v := range a.res.FinalValues {
		if v >= target {
			hit++
		}
	}
	return float64(hit) / float64(len(a.res.FinalValues))
}

// ExpectedShortfalls 多个置信度下收益率的 CVaR.
func (a *Analyzer) ExpectedShortfalls(levels ...float64) ([]float64, error) {
	out := make([]float64, len(levels))
	for i, c := range levels {
		v, err := finance.CalculateCVaR(a.res.Returns, c)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Moments 终值的前 maxOrder 阶矩：均值、方差、偏度、超额峰度. maxOrder 需在 [1,4].
func (a *Analyzer) Moments(maxOrder int) ([]float64, error) {
	if maxOrder < 1 || maxOrder > 4 {
		return nil, xerrors.InvalidArgument("moment order must be in [1,4], got %d", maxOrder)
	}
	data := a.res.FinalValues
	all := []float64{stats.Mean(data), stats.Variance(data), stats.Skewness(data), stats.Kurtosis(data)}
	return all[:maxOrder], nil
}

// TargetProbability 目标价位及其达到概率.
type TargetProbability struct {
	Target      float64 `json:"target" yaml:"target"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// Report 一次模拟的展平报告.
type Report struct {
	RunID         uuid.UUID           `json:"run_id" yaml:"run_id"`
	Model         string              `json:"model" yaml:"model"`
	Source        string              `json:"source" yaml:"source"`
	InitialValue  float64             `json:"initial_value" yaml:"initial_value"`
	NumPaths      int                 `json:"num_paths" yaml:"num_paths"`
	Steps         int                 `json:"steps" yaml:"steps"`
	Dt            float64             `json:"dt" yaml:"dt"`
	Seed          uint64              `json:"seed" yaml:"seed"`
	Elapsed       time.Duration       `json:"elapsed" yaml:"elapsed"`
	Price         stats.Summary       `json:"price" yaml:"price"`
	Return        stats.Summary       `json:"return" yaml:"return"`
	Risk          RiskMetrics         `json:"risk" yaml:"risk"`
	Percentiles   []Percentile        `json:"percentiles" yaml:"percentiles"`
	Convergence   Convergence         `json:"convergence" yaml:"convergence"`
	Probabilities []TargetProbability `json:"probabilities,omitempty" yaml:"probabilities,omitempty"`
}

// Report 汇总全部指标.
func (a *Analyzer) Report(confidence float64, targets ...float64) (*Report, error) {
	risk, err := a.RiskMetrics(confidence)
	if err != nil {
		return nil, err
	}
	pct, err := a.Percentiles()
	if err != nil {
		return nil, err
	}
	conv, err := a.Convergence()
	if err != nil {
		return nil, err
	}

	r := &Report{
		RunID:        a.res.RunID,
		Model:        a.res.Model,
		Source:       a.res.Source,
		InitialValue: a.res.InitialValue,
		NumPaths:     a.res.NumPaths,
		Steps:        a.res.Steps,
		Dt:           a.res.Dt,
		Seed:         a.res.Seed,
		Elapsed:      a.res.Elapsed,
		Price:        a.res.PriceSummary,
		Return:       a.res.ReturnSummary,
		Risk:         risk,
		Percentiles:  pct,
		Convergence:  conv,
	}
	for _, t := range targets {
		r.Probabilities = append(r.Probabilities, TargetProbability{Target: t, Probability: a.Probability(t)})
	}
	return r, nil
}
