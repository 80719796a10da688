package random

import (
	"fmt"
	"math/rand/v2"

	"github.com/wyfcoding/mcsim/xerrors"
)

// pcgStream 固定的 PCG 第二状态字，保证单一 uint64 种子即可复现序列.
const pcgStream = 0xDA3E39CB94B95BDB

// NormalSource 基于 PCG 的 N(mean, stddev) 正态随机数源.
type NormalSource struct {
	mean   float64
	stddev float64
	seed   uint64
	pcg    *rand.PCG
	rng    *rand.Rand
}

// NewNormalSource 创建标准正态源.
func NewNormalSource(seed uint64) *NormalSource {
	pcg := rand.NewPCG(seed, pcgStream)
	return &NormalSource{
		mean:   0,
		stddev: 1,
		seed:   seed,
		pcg:    pcg,
		rng:    rand.New(pcg),
	}
}

// NewScaledNormalSource 创建 N(mean, stddev) 正态源，stddev 为负时返回 InvalidParameter.
func NewScaledNormalSource(seed uint64, mean, stddev float64) (*NormalSource, error) {
	if stddev < 0 {
		return nil, xerrors.InvalidParameter("stddev must be non-negative, got %g", stddev)
	}
	s := NewNormalSource(seed)
	s.mean = mean
	s.stddev = stddev
	return s, nil
}

func (s *NormalSource) Draw() float64 {
	return s.mean + s.stddev*s.rng.NormFloat64()
}

func (s *NormalSource) DrawVector(n int) ([]float64, error) {
	return fill(s, n)
}

// Reseed 重置 PCG 状态. math/rand/v2 的正态采样不缓存样本，重置后序列与新建源一致.
func (s *NormalSource) Reseed(seed uint64) {
	s.seed = seed
	s.pcg.Seed(seed, pcgStream)
}

// Seed 返回最近一次使用的种子.
func (s *NormalSource) Seed() uint64 { return s.seed }

func (s *NormalSource) Name() string {
	if s.mean == 0 && s.stddev == 1 {
		return "normal"
	}
	return fmt.Sprintf("normal(%g,%g)", s.mean, s.stddev)
}
