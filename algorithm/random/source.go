// Package random 提供模拟所需的随机数源：可复现的伪随机正态源与 Sobol 低差异序列.
//
// 所有 Source 实现均不是并发安全的，并行场景应为每个 goroutine 派生独立的源，
// 或先顺序生成随机数再分发.
package random

import (
	"strings"

	"github.com/wyfcoding/mcsim/xerrors"
)

// Source 随机数源.
type Source interface {
	// Draw 返回下一个样本.
	Draw() float64
	// DrawVector 返回接下来的 n 个样本，n <= 0 时返回 InvalidArgument.
	DrawVector(n int) ([]float64, error)
	// Reseed 将源重置到 seed 决定的确定状态.
	Reseed(seed uint64)
	// Name 返回源的名称，用于日志与报告.
	Name() string
}

// Kind 随机数源类型.
type Kind string

const (
	KindNormal Kind = "normal"
	KindSobol  Kind = "sobol"
)

// ParseKind 解析随机数源类型，大小写不敏感.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindNormal, "":
		return KindNormal, nil
	case KindSobol:
		return KindSobol, nil
	default:
		return "", xerrors.InvalidArgument("unknown random source %q", s)
	}
}

// New 按类型构造随机数源. dimension 仅对 Sobol 有效.
func New(kind Kind, seed uint64, dimension int) (Source, error) {
	switch kind {
	case KindNormal, "":
		return NewNormalSource(seed), nil
	case KindSobol:
		s, err := NewSobolSource(dimension)
		if err != nil {
			return nil, err
		}
		s.Reseed(seed)
		return s, nil
	default:
		return nil, xerrors.InvalidArgument("unknown random source %q", string(kind))
	}
}

func fill(src Source, n int) ([]float64, error) {
	if n <= 0 {
		return nil, xerrors.InvalidArgument("vector size must be positive, got %d", n)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = src.Draw()
	}
	return out, nil
}

// SeedFor 由基础种子和路径序号派生独立的子种子 (SplitMix64).
// 同一 (base, pathIndex) 始终得到同一结果，与线程数无关.
func SeedFor(base uint64, pathIndex int) uint64 {
	z := base + uint64(pathIndex+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
