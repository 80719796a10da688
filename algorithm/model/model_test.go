package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/wyfcoding/mcsim/xerrors"
)

func TestGBM_ZeroVolatilityFlat(t *testing.T) {
	g, err := NewGBM(Params{InitialValue: 100, Drift: 0, Volatility: 0})
	require.NoError(t, err)

	draws := make([]float64, 100)
	path, err := g.SimulatePath(100, 100, 1.0, draws)
	require.NoError(t, err)
	assert.Equal(t, 100.0, path.Final())
}

func TestGBM_Moments(t *testing.T) {
	g, err := NewGBM(Params{InitialValue: 100, Drift: 0.05, Volatility: 0.2})
	require.NoError(t, err)

	assert.InDelta(t, 100*math.Exp(0.05), g.ExpectedValue(1), 1e-9)
	want := 100 * 100 * math.Exp(0.1) * (math.Exp(0.04) - 1)
	assert.InDelta(t, want, g.Variance(1), 1e-9)
	assert.Equal(t, "GBM", g.Name())
}

func TestConstructorValidation(t *testing.T) {
	_, err := NewGBM(Params{InitialValue: 0, Volatility: 0.1})
	assert.True(t, xerrors.IsInvalidParameter(err))

	_, err = NewGBM(Params{InitialValue: 1, Volatility: -0.1})
	assert.True(t, xerrors.IsInvalidParameter(err))

	_, err = NewVasicek(Params{MeanReversion: -1, Volatility: 0.01})
	assert.True(t, xerrors.IsInvalidParameter(err))

	_, err = NewHullWhite(Params{MeanReversion: 0.1, Volatility: math.NaN()})
	assert.True(t, xerrors.IsInvalidParameter(err))
}

func TestSetParameters_KeepsOldOnFailure(t *testing.T) {
	v, err := NewVasicek(Params{InitialValue: 0.03, MeanReversion: 0.5, LongTermMean: 0.04, Volatility: 0.01})
	require.NoError(t, err)

	err = v.SetParameters(Params{InitialValue: 0.03, MeanReversion: 0.5, Volatility: -1})
	assert.True(t, xerrors.IsInvalidParameter(err))
	assert.Equal(t, 0.01, v.Parameters().Volatility)

	require.NoError(t, v.SetParameters(Params{InitialValue: 0.02, MeanReversion: 1, LongTermMean: 0.05, Volatility: 0.02}))
	assert.Equal(t, 0.02, v.InitialValue())
}

func TestSimulatePath_Arguments(t *testing.T) {
	models := []Model{
		mustModel(t, KindGBM, Params{InitialValue: 1, Volatility: 0.2}),
		mustModel(t, KindVasicek, Params{InitialValue: 0.03, MeanReversion: 0.3, LongTermMean: 0.04, Volatility: 0.01}),
		mustModel(t, KindHullWhite, Params{InitialValue: 0.03, MeanReversion: 0.3, LongTermMean: 0.04, Volatility: 0.01}),
	}
	for _, m := range models {
		t.Run(m.Name(), func(t *testing.T) {
			_, err := m.SimulatePath(1, 3, 0.1, []float64{0, 0})
			assert.True(t, xerrors.IsInvalidArgument(err))
			_, err = m.SimulatePath(1, 0, 0.1, nil)
			assert.True(t, xerrors.IsInvalidArgument(err))
			_, err = m.SimulatePath(1, 1, 0, []float64{0})
			assert.True(t, xerrors.IsInvalidArgument(err))
		})
	}
}

func TestZeroVolatility_DrawIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom([]Kind{KindGBM, KindVasicek, KindHullWhite}).Draw(t, "kind")
		p := Params{
			InitialValue:  rapid.Float64Range(0.01, 200).Draw(t, "s0"),
			Drift:         rapid.Float64Range(-0.5, 0.5).Draw(t, "mu"),
			MeanReversion: rapid.Float64Range(0, 3).Draw(t, "kappa"),
			LongTermMean:  rapid.Float64Range(-0.05, 0.1).Draw(t, "theta"),
		}
		m, err := New(kind, p)
		if err != nil {
			t.Fatal(err)
		}
		cur := rapid.Float64Range(0.01, 200).Draw(t, "cur")
		dt := rapid.Float64Range(1e-4, 1).Draw(t, "dt")
		z1 := rapid.Float64Range(-10, 10).Draw(t, "z1")
		z2 := rapid.Float64Range(-10, 10).Draw(t, "z2")
		if m.SimulateStep(cur, dt, z1) != m.SimulateStep(cur, dt, z2) {
			t.Fatalf("%s step depends on the draw at zero volatility", m.Name())
		}
	})
}

func TestGBM_Positivity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g, err := NewGBM(Params{
			InitialValue: rapid.Float64Range(1e-3, 1e4).Draw(t, "s0"),
			Drift:        rapid.Float64Range(-1, 1).Draw(t, "mu"),
			Volatility:   rapid.Float64Range(0, 1.5).Draw(t, "sigma"),
		})
		if err != nil {
			t.Fatal(err)
		}
		draws := rapid.SliceOfN(rapid.Float64Range(-6, 6), 1, 256).Draw(t, "draws")
		path, err := g.SimulatePath(g.InitialValue(), len(draws), 1.0/252, draws)
		if err != nil {
			t.Fatal(err)
		}
		for i, v := range path {
			if !(v > 0) {
				t.Fatalf("path[%d] = %g", i, v)
			}
		}
	})
}

func TestVasicek_Analytics(t *testing.T) {
	v, err := NewVasicek(Params{InitialValue: 0.03, MeanReversion: 0.5, LongTermMean: 0.05, Volatility: 0.01})
	require.NoError(t, err)

	assert.InDelta(t, 0.05+(0.03-0.05)*math.Exp(-0.5), v.ExpectedValue(1), 1e-12)
	assert.InDelta(t, 0.0001/1*(1-math.Exp(-1)), v.Variance(1), 1e-12)
	assert.InDelta(t, 0.0001, v.StationaryVariance(), 1e-15)
	assert.Equal(t, 0.05, v.StationaryMean())
	assert.True(t, v.CanProduceNegative())

	below := v.ProbabilityBelow(0, 5)
	assert.Greater(t, below, 0.0)
	assert.Less(t, below, 0.01)
	assert.InDelta(t, 1, below+v.ProbabilityAbove(0, 5), 1e-12)

	flat, err := NewVasicek(Params{InitialValue: 0.03, MeanReversion: 0, LongTermMean: 0.05, Volatility: 0.01})
	require.NoError(t, err)
	assert.InDelta(t, 0.0001*2, flat.Variance(2), 1e-15)
	assert.True(t, math.IsInf(flat.StationaryVariance(), 1))
}

func TestVasicek_CanGoNegative(t *testing.T) {
	v, err := NewVasicek(Params{InitialValue: 0.001, MeanReversion: 0.1, LongTermMean: 0.0, Volatility: 0.05})
	require.NoError(t, err)

	draws := []float64{-3, -3, -3, -3}
	path, err := v.SimulatePath(0.001, 4, 0.25, draws)
	require.NoError(t, err)
	assert.Less(t, path.Final(), 0.0)
}

func TestHullWhite_DefaultMatchesVasicek(t *testing.T) {
	p := Params{InitialValue: 0.02, MeanReversion: 0.4, LongTermMean: 0.05, Volatility: 0.015}
	hw, err := NewHullWhite(p)
	require.NoError(t, err)
	va, err := NewVasicek(p)
	require.NoError(t, err)

	draws := []float64{0.3, -1.2, 0.8, 2.1, -0.4}
	a, err := hw.SimulatePath(p.InitialValue, 5, 0.1, draws)
	require.NoError(t, err)
	b, err := va.SimulatePath(p.InitialValue, 5, 0.1, draws)
	require.NoError(t, err)
	assert.InDeltaSlice(t, b, a, 1e-15)

	assert.InDelta(t, va.ExpectedValue(3), hw.ExpectedValue(3), 1e-12)
	assert.InDelta(t, va.Variance(3), hw.Variance(3), 1e-15)
}

func TestHullWhite_ThetaFunction(t *testing.T) {
	hw, err := NewHullWhite(Params{InitialValue: 0.02, MeanReversion: 0.4, LongTermMean: 0.05, Volatility: 0})
	require.NoError(t, err)

	err = hw.SetThetaFunction(nil)
	assert.True(t, xerrors.IsInvalidArgument(err))

	// 常数 θ 通过自定义函数设置时，数值积分应与闭式解一致.
	require.NoError(t, hw.SetThetaFunction(func(float64) float64 { return 0.4 * 0.05 }))
	closed := 0.05 + (0.02-0.05)*math.Exp(-0.4*2)
	assert.InDelta(t, closed, hw.ExpectedValue(2), 1e-9)

	require.NoError(t, hw.SetThetaFunction(func(t float64) float64 { return 0.01 * t }))
	path, err := hw.SimulatePath(0.02, 3, 1, []float64{0, 0, 0})
	require.NoError(t, err)
	// r1 = r0 + (θ(0) - a r0), r2 = r1 + (θ(1) - a r1) ...
	r := 0.02
	for i := range 3 {
		r += 0.01*float64(i) - 0.4*r
		assert.InDelta(t, r, path[i], 1e-15)
	}

	hw.ResetThetaFunction()
	assert.InDelta(t, 0.02, hw.Theta(10), 1e-15)
}

func TestCompileTheta(t *testing.T) {
	fn, err := CompileTheta("0.002 + 0.001 * t + 0.0005 * sin(t)")
	require.NoError(t, err)
	assert.InDelta(t, 0.002+0.001*2+0.0005*math.Sin(2), fn(2), 1e-15)

	_, err = CompileTheta("t +")
	assert.True(t, xerrors.IsInvalidArgument(err))

	_, err = CompileTheta("log(t)")
	assert.True(t, xerrors.IsInvalidArgument(err))
}

func TestCalibrateGBM(t *testing.T) {
	prices := []float64{100, 101, 102.01, 103.0301}
	p, err := CalibrateGBM(prices, 252)
	require.NoError(t, err)
	assert.InDelta(t, 0, p.Volatility, 1e-6)
	assert.InDelta(t, math.Log(1.01)*252, p.Drift, 1e-6)
	assert.Equal(t, 103.0301, p.InitialValue)

	_, err = CalibrateGBM([]float64{1, 2}, 252)
	assert.True(t, xerrors.IsInvalidArgument(err))
	_, err = CalibrateGBM([]float64{1, -2, 3}, 252)
	assert.True(t, xerrors.IsInvalidArgument(err))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Hull-White")
	require.NoError(t, err)
	assert.Equal(t, KindHullWhite, k)

	_, err = ParseKind("cir")
	assert.True(t, xerrors.IsInvalidArgument(err))

	_, err = New(Kind("cir"), Params{})
	assert.True(t, xerrors.IsInvalidArgument(err))
}

func mustModel(t *testing.T, kind Kind, p Params) Model {
	t.Helper()
	m, err := New(kind, p)
	require.NoError(t, err)
	return m
}
