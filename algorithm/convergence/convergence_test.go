package convergence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/mcsim/algorithm/random"
	"github.com/wyfcoding/mcsim/xerrors"
)

func normals(seed uint64, n int) []float64 {
	v, err := random.NewNormalSource(seed).DrawVector(n)
	if err != nil {
		panic(err)
	}
	return v
}

func TestStandardError(t *testing.T) {
	assert.Zero(t, StandardError([]float64{1}))
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.InDelta(t, 3.0277/math.Sqrt(10), StandardError(data), 1e-4)
}

func TestCheckConvergence(t *testing.T) {
	_, err := CheckConvergence([]float64{1, 2, 3, 4}, 2, 0)
	assert.True(t, xerrors.IsInvalidArgument(err))

	ok, err := CheckConvergence([]float64{1, 2, 3}, 2, 0.1)
	require.NoError(t, err)
	assert.False(t, ok, "too little data")

	// 数据不足时先于 tolerance 校验返回.
	ok, err = CheckConvergence([]float64{1, 2, 3}, 2, -1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = CheckConvergence([]float64{1, 2, 3, 4}, 1, 0.1)
	require.NoError(t, err)
	assert.False(t, ok)

	// 均值 100 附近的样本，批均值标准误远小于 1%.
	data := normals(1, 10000)
	for i := range data {
		data[i] += 100
	}
	ok, err = CheckConvergence(data, 10, 0.01)
	require.NoError(t, err)
	assert.True(t, ok)

	// 均值约为 0 时使用绝对标准误.
	ok, err = CheckConvergence(normals(2, 10000), 10, 1e-6)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckConvergence_IgnoresPartialBatch(t *testing.T) {
	// 三批均值为 10、10.1、9.9，标准误 0.1/√3，相对误差约 0.0058.
	// 尾部两个 -1000 不足一批，若计入总体均值 (|-91|) 相对误差会降到约 0.0006.
	data := make([]float64, 0, 20)
	for _, v := range []float64{10, 10.1, 9.9} {
		for range 6 {
			data = append(data, v)
		}
	}
	data = append(data, -1000, -1000)

	ok, err := CheckConvergence(data, 3, 0.001)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = CheckConvergence(data, 3, 0.01)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEstimateConvergenceRate(t *testing.T) {
	assert.Empty(t, EstimateConvergenceRate(make([]float64, 100), 5))
	assert.Empty(t, EstimateConvergenceRate(make([]float64, 15), 10))

	rates := EstimateConvergenceRate(normals(3, 1000), 100)
	assert.Len(t, rates, 9)
	for _, r := range rates {
		assert.GreaterOrEqual(t, r, 0.0)
	}
}

func TestBatchMeans(t *testing.T) {
	assert.Equal(t, []float64{1.5, 3.5}, BatchMeans([]float64{1, 2, 3, 4, 5}, 2))
	assert.Nil(t, BatchMeans([]float64{1}, 2))
}

func TestEffectiveSampleSize(t *testing.T) {
	assert.Equal(t, 5.0, EffectiveSampleSize([]float64{2, 2, 2, 2, 2}))
	assert.Equal(t, 1.0, EffectiveSampleSize([]float64{7}))

	// 1..20 的线性趋势，自相关按样本方差归一化.
	ramp := make([]float64, 20)
	for i := range ramp {
		ramp[i] = float64(i + 1)
	}
	assert.InDelta(t, 10.2689, EffectiveSampleSize(ramp), 1e-4)

	iid := normals(4, 5000)
	ess := EffectiveSampleSize(iid)
	assert.LessOrEqual(t, ess, 5000.0)
	assert.Greater(t, ess, 4000.0)

	// AR(1) 序列强正相关，有效样本量明显下降.
	ar := make([]float64, 5000)
	z := normals(5, 5000)
	for i := 1; i < len(ar); i++ {
		ar[i] = 0.9*ar[i-1] + z[i]
	}
	assert.Less(t, EffectiveSampleSize(ar), 3000.0)
	assert.Greater(t, MonteCarloStandardError(ar), StandardError(ar))
}

func TestAutocorrelation(t *testing.T) {
	alt := []float64{1, -1, 1, -1, 1, -1, 1, -1}
	assert.Less(t, Autocorrelation(alt, 1), 0.0)
	assert.Greater(t, Autocorrelation(alt, 2), 0.0)
	assert.Zero(t, Autocorrelation(alt, 0))
	assert.Zero(t, Autocorrelation([]float64{3, 3, 3}, 1))
}

func TestGelmanRubin(t *testing.T) {
	_, err := GelmanRubin([][]float64{{1, 2}})
	assert.True(t, xerrors.IsInvalidArgument(err))
	_, err = GelmanRubin([][]float64{{1, 2}, {1}})
	assert.True(t, xerrors.IsInvalidArgument(err))

	same := [][]float64{normals(6, 2000), normals(7, 2000), normals(8, 2000)}
	r, err := GelmanRubin(same)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 0.01)

	shifted := [][]float64{normals(6, 2000), normals(7, 2000)}
	for i := range shifted[1] {
		shifted[1][i] += 3
	}
	r, err = GelmanRubin(shifted)
	require.NoError(t, err)
	assert.Greater(t, r, 1.5)

	r, err = GelmanRubin([][]float64{{1, 1}, {1, 1}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)
}
