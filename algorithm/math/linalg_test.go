package math

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/mcsim/xerrors"
)

func TestCholesky_Reconstructs(t *testing.T) {
	a, err := NewMatrixFromData([][]float64{
		{1.0, 0.5, 0.3},
		{0.5, 1.0, 0.4},
		{0.3, 0.4, 1.0},
	})
	require.NoError(t, err)

	l, err := a.Cholesky()
	require.NoError(t, err)

	for i := range 3 {
		for j := i + 1; j < 3; j++ {
			assert.Zero(t, l.Get(i, j), "upper triangle must be zero")
		}
	}

	for i := range 3 {
		for j := range 3 {
			var sum float64
			for k := range 3 {
				sum += l.Get(i, k) * l.Get(j, k)
			}
			assert.InDelta(t, a.Get(i, j), sum, 1e-12)
		}
	}
}

func TestCholesky_Errors(t *testing.T) {
	rect := NewMatrix(2, 3)
	_, err := rect.Cholesky()
	assert.True(t, errors.Is(err, xerrors.ErrNotSquare))

	notPD, err := NewMatrixFromData([][]float64{{1, 2}, {2, 1}})
	require.NoError(t, err)
	_, err = notPD.Cholesky()
	assert.True(t, errors.Is(err, xerrors.ErrNotPositiveDefinite))
}

func TestNewMatrixFromData_Ragged(t *testing.T) {
	_, err := NewMatrixFromData([][]float64{{1, 2}, {3}})
	assert.True(t, errors.Is(err, xerrors.ErrDimMismatch))

	_, err = NewMatrixFromData(nil)
	assert.True(t, errors.Is(err, xerrors.ErrEmptyData))
}

func TestQuadraticForm(t *testing.T) {
	cov, err := NewMatrixFromData([][]float64{{0.04, 0.01}, {0.01, 0.09}})
	require.NoError(t, err)

	v, err := cov.QuadraticForm([]float64{0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.25*0.04+2*0.25*0.01+0.25*0.09, v, 1e-15)

	_, err = cov.QuadraticForm([]float64{1})
	assert.Error(t, err)
}

func TestIdentityAndSymmetry(t *testing.T) {
	id := Identity(3)
	assert.True(t, id.IsSymmetric(0))

	y, err := id.MultiplyVector([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, y)
	assert.Equal(t, [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, id.Slices())

	m, _ := NewMatrixFromData([][]float64{{1, 0.2}, {0.3, 1}})
	assert.False(t, m.IsSymmetric(1e-9))
}
