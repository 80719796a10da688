package random

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/wyfcoding/mcsim/xerrors"
)

func TestNormalSource_Deterministic(t *testing.T) {
	a := NewNormalSource(42)
	b := NewNormalSource(42)

	va, err := a.DrawVector(64)
	require.NoError(t, err)
	vb, err := b.DrawVector(64)
	require.NoError(t, err)
	assert.Equal(t, va, vb)

	a.Reseed(42)
	again, err := a.DrawVector(64)
	require.NoError(t, err)
	assert.Equal(t, va, again, "reseed must restart the sequence")

	c := NewNormalSource(43)
	vc, _ := c.DrawVector(64)
	assert.NotEqual(t, va, vc)
}

func TestNormalSource_Moments(t *testing.T) {
	s, err := NewScaledNormalSource(7, 2, 0.5)
	require.NoError(t, err)

	const n = 200000
	var sum, sq float64
	for range n {
		x := s.Draw()
		sum += x
		sq += x * x
	}
	mean := sum / n
	sd := math.Sqrt(sq/n - mean*mean)
	assert.InDelta(t, 2.0, mean, 0.01)
	assert.InDelta(t, 0.5, sd, 0.01)
}

func TestNormalSource_Invalid(t *testing.T) {
	_, err := NewScaledNormalSource(1, 0, -1)
	assert.True(t, xerrors.IsInvalidParameter(err))

	_, err = NewNormalSource(1).DrawVector(0)
	assert.True(t, xerrors.IsInvalidArgument(err))
}

func TestSobol_FirstPoints(t *testing.T) {
	s, err := NewSobolSource(2)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.5, 0.5}, s.Point(1))
	assert.Equal(t, []float64{0.75, 0.25}, s.Point(2))
	assert.Equal(t, []float64{0.25, 0.75}, s.Point(3))
}

func TestSobol_UniformCoverage(t *testing.T) {
	s, err := NewSobolSource(1)
	require.NoError(t, err)
	s.WithUniformOutput()

	// 前 2^k - 1 个一维点恰好是 {j / 2^k}，每个区间 [j/8, (j+1)/8) 中都落入点.
	var buckets [8]int
	for range 63 {
		u := s.Draw()
		require.True(t, u > 0 && u < 1)
		buckets[int(u*8)]++
	}
	for i, c := range buckets {
		assert.Positive(t, c, "bucket %d empty", i)
	}
}

func TestSobol_ReseedMovesCursor(t *testing.T) {
	s, err := NewSobolSource(3)
	require.NoError(t, err)

	first, _ := s.DrawVector(9)
	s.Reseed(0)
	again, _ := s.DrawVector(9)
	assert.Equal(t, first, again)

	s.Reseed(2)
	skipped, _ := s.DrawVector(3)
	assert.Equal(t, first[6:9], skipped)
}

func TestSobol_ReseedWrapsLargeSeeds(t *testing.T) {
	s, err := NewSobolSource(2)
	require.NoError(t, err)

	s.Reseed(0)
	start, _ := s.DrawVector(4)
	s.Reseed(1)
	second, _ := s.DrawVector(4)

	// 2^64-1 与 2^32 对 2^32-1 取模后分别为 0 与 1.
	s.Reseed(math.MaxUint64)
	wrapped, _ := s.DrawVector(4)
	assert.Equal(t, start, wrapped)

	s.Reseed(1 << 32)
	wrapped, _ = s.DrawVector(4)
	assert.Equal(t, second, wrapped)

	for _, seed := range []uint64{math.MaxUint64, 1 << 32, 1<<32 - 2, 1 << 40} {
		s.Reseed(seed)
		v, err := s.DrawVector(64)
		require.NoError(t, err)
		for i, x := range v {
			require.False(t, math.IsInf(x, 0) || math.IsNaN(x), "seed %d draw %d = %v", seed, i, x)
		}
	}
}

func TestSobol_Dimension(t *testing.T) {
	_, err := NewSobolSource(0)
	assert.True(t, xerrors.IsInvalidArgument(err))
	_, err = NewSobolSource(MaxSobolDimension + 1)
	assert.True(t, xerrors.IsInvalidArgument(err))

	s, err := NewSobolSource(MaxSobolDimension)
	require.NoError(t, err)
	for _, u := range s.Point(12345) {
		assert.True(t, u > 0 && u < 1)
	}
}

func TestNewAndParseKind(t *testing.T) {
	k, err := ParseKind("SOBOL")
	require.NoError(t, err)
	assert.Equal(t, KindSobol, k)

	src, err := New(k, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, "sobol(4)", src.Name())

	_, err = ParseKind("mersenne")
	assert.Error(t, err)
}

func TestSeedFor_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := rapid.Uint64().Draw(t, "base")
		i := rapid.IntRange(0, 1<<20).Draw(t, "i")
		j := rapid.IntRange(0, 1<<20).Draw(t, "j")

		if SeedFor(base, i) != SeedFor(base, i) {
			t.Fatal("SeedFor must be pure")
		}
		if i != j && SeedFor(base, i) == SeedFor(base, j) {
			t.Fatalf("collision for %d and %d", i, j)
		}
	})
}
