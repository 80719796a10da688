// Package pathgen 基于模型与随机源生成模拟路径，支持对偶变量、控制变量与多资产相关路径.
package pathgen

import (
	"math"

	algomath "github.com/wyfcoding/mcsim/algorithm/math"
	"github.com/wyfcoding/mcsim/algorithm/model"
	"github.com/wyfcoding/mcsim/algorithm/random"
	"github.com/wyfcoding/mcsim/xerrors"
)

// Mixing 多资产随机数的相关混合方式.
type Mixing int

const (
	// MixLinear 按相关矩阵行做线性组合并除以资产数. 不能精确复现目标相关结构.
	MixLinear Mixing = iota
	// MixCholesky 以相关矩阵的 Cholesky 因子 L 生成 L·z，得到目标相关结构.
	MixCholesky
)

func (m Mixing) String() string {
	if m == MixCholesky {
		return "cholesky"
	}
	return "linear"
}

// Option 生成器选项.
type Option func(*Generator)

// WithMixing 设置相关路径的混合方式.
func WithMixing(m Mixing) Option {
	return func(g *Generator) { g.mixing = m }
}

// WithAssetModels 为每个资产指定独立的模型，未指定时所有资产共用生成器模型.
func WithAssetModels(models ...model.Model) Option {
	return func(g *Generator) { g.assetModels = models }
}

// Generator 路径生成器. 随机源不是并发安全的，同一 Generator 不应被并发调用.
type Generator struct {
	model       model.Model
	src         random.Source
	mixing      Mixing
	assetModels []model.Model
}

// NewGenerator 创建路径生成器.
func NewGenerator(m model.Model, src random.Source, opts ...Option) (*Generator, error) {
	if m == nil {
		return nil, xerrors.InvalidArgument("model must not be nil")
	}
	if src == nil {
		return nil, xerrors.InvalidArgument("random source must not be nil")
	}
	g := &Generator{model: m, src: src}
	for _, opt := range opts {
		opt(g)
	}
	for i, am := range g.assetModels {
		if am == nil {
			return nil, xerrors.InvalidArgument("asset model %d is nil", i)
		}
	}
	return g, nil
}

func validate(n, steps int, dt float64) error {
	if n <= 0 {
		return xerrors.InvalidArgument("number of paths must be positive, got %d", n)
	}
	if steps <= 0 {
		return xerrors.InvalidArgument("steps must be positive, got %d", steps)
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return xerrors.InvalidArgument("dt must be positive, got %g", dt)
	}
	return nil
}

// GeneratePath 生成单条路径.
func (g *Generator) GeneratePath(initial float64, steps int, dt float64) (model.Path, error) {
	if err := validate(1, steps, dt); err != nil {
		return nil, err
	}
	draws, err := g.src.DrawVector(steps)
	if err != nil {
		return nil, err
	}
	return g.model.SimulatePath(initial, steps, dt, draws)
}

// GeneratePaths 生成 n 条独立路径.
func (g *Generator) GeneratePaths(n int, initial float64, steps int, dt float64) ([]model.Path, error) {
	if err := validate(n, steps, dt); err != nil {
		return nil, err
	}
	paths := make([]model.Path, n)
	for i := range paths {
		p, err := g.GeneratePath(initial, steps, dt)
		if err != nil {
			return nil, err
		}
		paths[i] = p
	}
	return paths, nil
}

// GeneratePathsAntithetic 对偶变量法：路径 2i+1 使用路径 2i 随机数的逐元素相反数. n 为奇数时最后一条独立生成.
func (g *Generator) GeneratePathsAntithetic(n int, initial float64, steps int, dt float64) ([]model.Path, error) {
	if err := validate(n, steps, dt); err != nil {
		return nil, err
	}
	paths := make([]model.Path, n)
	for i := 0; i+1 < n; i += 2 {
		draws, err := g.src.DrawVector(steps)
		if err != nil {
			return nil, err
		}
		if paths[i], err = g.model.SimulatePath(initial, steps, dt, draws); err != nil {
			return nil, err
		}
		if paths[i+1], err = g.model.SimulatePath(initial, steps, dt, Negate(draws)); err != nil {
			return nil, err
		}
	}
	if n%2 == 1 {
		p, err := g.GeneratePath(initial, steps, dt)
		if err != nil {
			return nil, err
		}
		paths[n-1] = p
	}
	return paths, nil
}

// Negate 返回逐元素取反的新切片.
func Negate(draws []float64) []float64 {
	out := make([]float64, len(draws))
	for i, z := range draws {
		out[i] = -z
	}
	return out
}

// GeneratePathsControlVariate 控制变量调整：每步随机数变为 z - 0.5·cv[step]. cv 长度必须等于 steps.
func (g *Generator) GeneratePathsControlVariate(n int, initial float64, steps int, dt float64, controlVariate []float64) ([]model.Path, error) {
	if err := validate(n, steps, dt); err != nil {
		return nil, err
	}
	if len(controlVariate) != steps {
		return nil, xerrors.InvalidArgument("control variate length %d does not match steps %d", len(controlVariate), steps)
	}
	paths := make([]model.Path, n)
	for i := range paths {
		draws, err := g.src.DrawVector(steps)
		if err != nil {
			return nil, err
		}
		if paths[i], err = g.model.SimulatePath(initial, steps, dt, ApplyControlVariate(draws, controlVariate)); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// ApplyControlVariate 原地将 draws[j] 调整为 draws[j] - 0.5·cv[j] 并返回 draws.
func ApplyControlVariate(draws, controlVariate []float64) []float64 {
	for j := range draws {
		draws[j] -= 0.5 * controlVariate[j]
	}
	return draws
}

// GenerateCorrelatedPaths 生成 k 个资产各 n 条相关路径，返回 [k][n]Path.
// 先按资产、再按路径顺序抽取独立随机数，然后在每个时间步按混合方式组合.
func (g *Generator) GenerateCorrelatedPaths(n int, initials []float64, steps int, dt float64, corr [][]float64) ([][]model.Path, error) {
	if err := validate(n, steps, dt); err != nil {
		return nil, err
	}
	k := len(initials)
	if k == 0 {
		return nil, xerrors.InvalidArgument("at least one asset is required")
	}
	if len(corr) != k {
		return nil, xerrors.InvalidArgument("correlation matrix has %d rows, want %d", len(corr), k)
	}
	for i, row := range corr {
		if len(row) != k {
			return nil, xerrors.InvalidArgument("correlation row %d has %d columns, want %d", i, len(row), k)
		}
	}
	models, err := g.modelsFor(k)
	if err != nil {
		return nil, err
	}
	mixer, err := g.newMixer(corr)
	if err != nil {
		return nil, err
	}

	raw := make([][][]float64, k)
	for a := range k {
		raw[a] = make([][]float64, n)
		for p := range n {
			if raw[a][p], err = g.src.DrawVector(steps); err != nil {
				return nil, err
			}
		}
	}

	out := make([][]model.Path, k)
	for a := range out {
		out[a] = make([]model.Path, n)
	}

	z := make([]float64, k)
	mixed := make([]float64, k)
	assetDraws := make([][]float64, k)
	for p := range n {
		for a := range k {
			assetDraws[a] = make([]float64, steps)
		}
		for s := range steps {
			for a := range k {
				z[a] = raw[a][p][s]
			}
			if err := mixer(mixed, z); err != nil {
				return nil, err
			}
			for a := range k {
				assetDraws[a][s] = mixed[a]
			}
		}
		for a := range k {
			if out[a][p], err = models[a].SimulatePath(initials[a], steps, dt, assetDraws[a]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (g *Generator) modelsFor(k int) ([]model.Model, error) {
	if len(g.assetModels) == 0 {
		models := make([]model.Model, k)
		for i := range models {
			models[i] = g.model
		}
		return models, nil
	}
	if len(g.assetModels) != k {
		return nil, xerrors.InvalidArgument("%d asset models for %d assets", len(g.assetModels), k)
	}
	return g.assetModels, nil
}

type mixFunc func(dst, z []float64) error

func (g *Generator) newMixer(corr [][]float64) (mixFunc, error) {
	m, err := algomath.NewMatrixFromData(corr)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "invalid correlation matrix")
	}

	switch g.mixing {
	case MixCholesky:
		if !m.IsSymmetric(1e-9) {
			return nil, xerrors.InvalidArgument("correlation matrix must be symmetric")
		}
		l, err := m.Cholesky()
		if err != nil {
			return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "correlation matrix is not positive definite")
		}
		return l.MultiplyVectorInto, nil
	default:
		k := float64(m.Rows)
		return func(dst, z []float64) error {
			if err := m.MultiplyVectorInto(dst, z); err != nil {
				return err
			}
			for i := range dst {
				dst[i] /= k
			}
			return nil
		}, nil
	}
}
