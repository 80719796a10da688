package random

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wyfcoding/mcsim/xerrors"
)

// MaxSobolDimension 支持的最大维度.
const MaxSobolDimension = 10

const sobolBits = 32

// sobolPeriod 32 位方向数可寻址的非零点数 2^32-1，游标在 [1, sobolPeriod] 内循环.
const sobolPeriod = 1<<sobolBits - 1

// Joe-Kuo 方向数 (new-joe-kuo-6.21201)，第 1 维为范德科普特序列单独处理.
var sobolParams = [MaxSobolDimension - 1]struct {
	s uint
	a uint32
	m []uint32
}{
	{1, 0, []uint32{1}},
	{2, 1, []uint32{1, 3}},
	{3, 1, []uint32{1, 3, 1}},
	{3, 2, []uint32{1, 1, 1}},
	{4, 1, []uint32{1, 1, 3, 3}},
	{4, 4, []uint32{1, 3, 5, 13}},
	{5, 2, []uint32{1, 1, 5, 5, 17}},
	{5, 4, []uint32{1, 1, 5, 5, 5}},
	{5, 7, []uint32{1, 1, 7, 11, 19}},
}

// SobolSource Sobol 低差异序列. 样本按坐标依次消费：
// 第 k 次 Draw 返回第 k/dim 个点的第 k%dim 个坐标.
// 默认通过标准正态分位数映射为 N(0,1)，WithUniformOutput 后返回 (0,1) 原始坐标.
type SobolSource struct {
	dim     int
	v       [][sobolBits]uint32
	index   uint64 // 当前点序号，从 1 开始跳过全零点
	coord   int
	uniform bool
}

// NewSobolSource 创建 dim 维 Sobol 源，dim 需在 [1, MaxSobolDimension].
func NewSobolSource(dim int) (*SobolSource, error) {
	if dim < 1 || dim > MaxSobolDimension {
		return nil, xerrors.InvalidArgument("sobol dimension must be in [1,%d], got %d", MaxSobolDimension, dim)
	}

	v := make([][sobolBits]uint32, dim)
	for k := range sobolBits {
		v[0][k] = 1 << (sobolBits - 1 - k)
	}
	for d := 1; d < dim; d++ {
		p := sobolParams[d-1]
		s := int(p.s)
		for k := 0; k < s && k < sobolBits; k++ {
			v[d][k] = p.m[k] << (sobolBits - 1 - k)
		}
		for k := s; k < sobolBits; k++ {
			x := v[d][k-s] ^ (v[d][k-s] >> p.s)
			for l := 1; l < s; l++ {
				if (p.a>>(s-1-l))&1 == 1 {
					x ^= v[d][k-l]
				}
			}
			v[d][k] = x
		}
	}

	return &SobolSource{dim: dim, v: v, index: 1}, nil
}

// WithUniformOutput 切换为输出 (0,1) 均匀坐标.
func (s *SobolSource) WithUniformOutput() *SobolSource {
	s.uniform = true
	return s
}

// Dimension 返回序列维度.
func (s *SobolSource) Dimension() int { return s.dim }

// Point 计算第 n 个点 (n >= 1) 的全部坐标，使用格雷码构造.
func (s *SobolSource) Point(n uint64) []float64 {
	out := make([]float64, s.dim)
	for d := range s.dim {
		out[d] = s.coordinate(n, d)
	}
	return out
}

func (s *SobolSource) coordinate(n uint64, d int) float64 {
	g := n ^ (n >> 1)
	var x uint32
	for k := 0; g != 0 && k < sobolBits; k++ {
		if g&1 == 1 {
			x ^= s.v[d][k]
		}
		g >>= 1
	}
	return float64(x) / (1 << sobolBits)
}

func (s *SobolSource) Draw() float64 {
	u := s.coordinate(s.index, s.coord)
	s.coord++
	if s.coord == s.dim {
		s.coord = 0
		s.index = s.index%sobolPeriod + 1
	}
	if s.uniform {
		return u
	}
	return distuv.UnitNormal.Quantile(u)
}

func (s *SobolSource) DrawVector(n int) ([]float64, error) {
	return fill(s, n)
}

// Reseed 将游标移动到第 seed 个点，seed 为 0 时回到序列起点. Sobol 序列本身没有随机状态.
// seed 按 2^32-1 取模，全零点永远不会被抽到.
func (s *SobolSource) Reseed(seed uint64) {
	s.index = seed%sobolPeriod + 1
	s.coord = 0
}

func (s *SobolSource) Name() string {
	return fmt.Sprintf("sobol(%d)", s.dim)
}
