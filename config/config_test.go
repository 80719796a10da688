package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/mcsim/algorithm/model"
	"github.com/wyfcoding/mcsim/xerrors"
)

func TestLoad_ExampleFile(t *testing.T) {
	c, err := Load(filepath.Join("..", "configs", "mcsim.toml"))
	require.NoError(t, err)

	assert.Equal(t, 10000, c.Simulation.Paths)
	assert.Equal(t, 1000, c.Simulation.BatchSize)
	assert.Equal(t, 7.2, c.Model.InitialValue)
	assert.Len(t, c.Portfolio.Assets, 2)
	assert.Equal(t, "EURCNY", c.Portfolio.Assets[1].Name)
	assert.Equal(t, [][]float64{{1, 0.6}, {0.6, 1}}, c.Portfolio.Correlation)
	assert.Len(t, c.Scenarios, 2)
	assert.Equal(t, "0.5 * (0.04 + 0.01 * t)", c.Scenarios[1].Model.Theta)
	assert.Equal(t, 10*time.Minute, c.Cache.LifeWindow)

	kind, err := c.Scenarios[0].Model.Kind()
	require.NoError(t, err)
	assert.Equal(t, model.KindVasicek, kind)
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("MCSIM_SIMULATION_PATHS", "2500")
	t.Setenv("MCSIM_MODEL_TYPE", "vasicek")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2500, c.Simulation.Paths)
	assert.Equal(t, "vasicek", c.Model.Type)
	assert.Equal(t, 252, c.Simulation.Steps)
	assert.Equal(t, []float64{0.01, 0.05, 0.25, 0.5, 0.75, 0.95, 0.99}, c.Risk.Percentiles)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	e, ok := xerrors.FromError(err)
	require.True(t, ok)
	assert.Equal(t, xerrors.ErrNotFound, e.Type)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[risk]\nconfidence = 1.5\n"), 0o600))
	_, err = Load(bad)
	assert.True(t, xerrors.IsInvalidArgument(err))
}

func TestValidate_CrossField(t *testing.T) {
	c := Default()
	require.NoError(t, Validate(c))

	c.Model.Type = "heston"
	assert.True(t, xerrors.IsInvalidArgument(Validate(c)))

	c = Default()
	c.Simulation.BatchSize = c.Simulation.Paths + 1
	assert.True(t, xerrors.IsInvalidArgument(Validate(c)))

	c = Default()
	c.Portfolio.Assets = []AssetConfig{
		{Name: "a", Weight: 0.5, Model: ModelConfig{Type: "gbm", InitialValue: 1}},
		{Name: "b", Weight: 0.5, Model: ModelConfig{Type: "gbm", InitialValue: 1}},
	}
	c.Portfolio.Correlation = [][]float64{{1, 0.2}}
	assert.True(t, xerrors.IsInvalidArgument(Validate(c)))
}

func TestSave_RoundTrip(t *testing.T) {
	c := Default()
	c.Model.Type = "hull_white"
	c.Model.Theta = "0.02 + 0.001 * t"
	c.Simulation.Antithetic = true

	path := filepath.Join(t.TempDir(), "out.toml")
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c.Model, got.Model)
	assert.Equal(t, c.Simulation, got.Simulation)
	assert.Equal(t, c.Risk.Percentiles, got.Risk.Percentiles)
	assert.Equal(t, c.Cache.LifeWindow, got.Cache.LifeWindow)
}

func TestModelConfig_ToParams(t *testing.T) {
	m := ModelConfig{Type: "gbm", InitialValue: 2, Drift: 0.1, Volatility: 0.3}
	assert.Equal(t, model.Params{InitialValue: 2, Drift: 0.1, Volatility: 0.3}, m.ToParams())
}
