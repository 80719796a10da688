package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/mcsim/config"
)

const exampleConfig = "../../../configs/mcsim.toml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRun_JSONReport(t *testing.T) {
	out, err := execute(t, "run",
		"--paths", "500", "--steps", "10", "--dt", "0.1", "--seed", "7",
		"--initial-value", "100", "--volatility", "0.25",
		"--format", "json", "--target", "100", "--target", "120")
	require.NoError(t, err)

	var tree map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	assert.Equal(t, "GBM", tree["run"]["model"])
	assert.Equal(t, 500.0, tree["run"]["num_paths"])
	assert.Equal(t, "7", tree["run"]["seed"])
	assert.Contains(t, tree["probability"], ">=120")
	assert.Contains(t, tree["risk"], "var")
}

func TestRun_RawOutputs(t *testing.T) {
	dir := t.TempDir()
	samples := filepath.Join(dir, "samples.csv")
	paths := filepath.Join(dir, "paths.csv")
	report := filepath.Join(dir, "report.csv")

	out, err := execute(t, "run",
		"--paths", "300", "--steps", "5", "--dt", "0.2",
		"--format", "csv", "--output", report,
		"--samples-out", samples, "--paths-out", paths)
	require.NoError(t, err)
	assert.Empty(t, out)

	rows := readCSV(t, samples)
	assert.Len(t, rows, 301)
	assert.Equal(t, []string{"path", "final_value", "return"}, rows[0])

	rows = readCSV(t, paths)
	assert.Len(t, rows, 7) // 表头 + 初始值 + 5 步
	assert.Equal(t, "step", rows[0][0])

	rows = readCSV(t, report)
	assert.Equal(t, []string{"section", "metric", "value"}, rows[0])
}

func TestRun_InvalidInput(t *testing.T) {
	_, err := execute(t, "run", "--paths", "0")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))

	_, err = execute(t, "run", "--no-such-flag")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))

	_, err = execute(t, "run", "--model", "gbm", "--initial-value", "-1", "--paths", "10", "--steps", "2")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))

	_, err = execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
}

func TestRun_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("MCSIM_REPORT_FORMAT", "csv")
	out, err := execute(t, "run", "--paths", "100", "--steps", "3")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "section,metric,value\n"))
}

func TestCompare_FromConfig(t *testing.T) {
	out, err := execute(t, "compare", "--config", exampleConfig,
		"--paths", "400", "--steps", "12", "--batch-size", "100", "--format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "section,metric,vasicek-rates,hull-white-rates", lines[0])
	assert.Contains(t, out, "run,model,Vasicek,HullWhite")

	out, err = execute(t, "compare", "hull-white-rates", "--config", exampleConfig,
		"--paths", "200", "--steps", "4", "--batch-size", "100", "--format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "section,metric,hull-white-rates\n"))

	_, err = execute(t, "compare", "nope", "--config", exampleConfig)
	assert.Equal(t, 2, ExitCode(err))
}

func TestPortfolio_FromConfig(t *testing.T) {
	out, err := execute(t, "portfolio", "--config", exampleConfig, "--paths", "500", "--steps", "12", "--batch-size", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "[portfolio]")
	assert.Contains(t, out, "[asset.USDCNY]")
	assert.Contains(t, out, "USDCNY~EURCNY")
}

func TestConfig_ShowAndInit(t *testing.T) {
	out, err := execute(t, "config", "show", "--config", exampleConfig, "--paths", "1234")
	require.NoError(t, err)
	assert.Contains(t, out, "paths = 1234")
	assert.Contains(t, out, `name = "vasicek-rates"`)

	path := filepath.Join(t.TempDir(), "mcsim.toml")
	_, err = execute(t, "config", "init", path)
	require.NoError(t, err)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Simulation, cfg.Simulation)

	_, err = execute(t, "config", "init", path)
	assert.Equal(t, 2, ExitCode(err))
	_, err = execute(t, "config", "init", path, "--force")
	assert.NoError(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--config", filepath.Join(t.TempDir(), "ignored.toml"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "mcsim dev "))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
