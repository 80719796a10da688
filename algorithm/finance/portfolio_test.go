package finance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/mcsim/xerrors"
)

func TestCalculatePortfolioRisk(t *testing.T) {
	assetReturns := [][]float64{
		{0.10, -0.05, 0.02, -0.20},
		{0.00, 0.05, -0.02, 0.10},
	}
	r, err := CalculatePortfolioRisk(assetReturns, []float64{0.5, 0.5}, 0.75)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.05, 0, 0, -0.05}, r.Returns, 1e-12)
	// ⌊0.25·4⌋ = 1 -> 升序第二个值.
	assert.InDelta(t, 0, r.VaR, 1e-12)
	assert.InDelta(t, -0.025, r.CVaR, 1e-12)
	assert.Greater(t, r.Volatility, 0.0)

	_, err = CalculatePortfolioRisk(assetReturns, []float64{1}, 0.95)
	assert.True(t, xerrors.IsInvalidArgument(err))

	_, err = CalculatePortfolioRisk([][]float64{{1, 2}, {1}}, []float64{0.5, 0.5}, 0.95)
	assert.True(t, xerrors.IsInvalidArgument(err))

	_, err = CalculatePortfolioRisk(assetReturns, []float64{0.5, 0.5}, 1.2)
	assert.True(t, xerrors.IsInvalidArgument(err))
}

func TestPortfolio(t *testing.T) {
	p, err := NewPortfolio([]string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD"}, []float64{0.4, 0.3, 0.2, 0.1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.4, 0.3, 0.2, 0.1}, p.FloatWeights(), 1e-15)

	v, err := p.Value([]float64{1.1, 1.3, 150, 0.7})
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("30.9")), v.String())

	_, err = NewPortfolio([]string{"A", "B"}, []float64{0.5, 0.6})
	assert.True(t, xerrors.IsInvalidArgument(err))

	_, err = NewPortfolio([]string{"A"}, []float64{0.5, 0.5})
	assert.True(t, errors.Is(err, xerrors.ErrDimMismatch))

	eq, err := EqualWeight([]string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Len(t, eq.Weights, 3)
}

func TestCalculatePortfolioVariance(t *testing.T) {
	v, err := CalculatePortfolioVariance([]float64{0.6, 0.4}, [][]float64{{0.04, 0.006}, {0.006, 0.09}})
	require.NoError(t, err)
	assert.InDelta(t, 0.36*0.04+2*0.24*0.006+0.16*0.09, v, 1e-15)

	_, err = CalculatePortfolioVariance([]float64{1}, [][]float64{{0.04, 0.006}, {0.006, 0.09}})
	assert.True(t, errors.Is(err, xerrors.ErrDimMismatch))
}
