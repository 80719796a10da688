// Package report 将分析报告展平为 (分组, 指标, 值) 行，并以 text/csv/json/yaml 输出.
// 数值统一经 decimal 四舍五入到固定小数位.
package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/mcsim/algorithm/stats"
	"github.com/wyfcoding/mcsim/analysis"
	"github.com/wyfcoding/mcsim/xerrors"
)

// Format 输出格式.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat 解析输出格式.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatCSV, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", xerrors.InvalidArgument("unknown report format %q", s)
	}
}

// Row 报告中的一行. Text 非空时表示文本字段，Value 被忽略.
type Row struct {
	Section string
	Key     string
	Value   float64
	Text    string
}

// Flattener 可展平为报告行的对象.
type Flattener interface {
	Rows() []Row
}

// Rows 一组现成的行.
type Rows []Row

func (r Rows) Rows() []Row { return r }

// Round 四舍五入到 places 位小数，NaN 与 ±Inf 原样返回.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func formatValue(r Row, places int32) string {
	if r.Text != "" {
		return r.Text
	}
	v := r.Value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return decimal.NewFromFloat(v).Round(places).String()
}

// SummaryRows 展平描述统计.
func SummaryRows(section string, s stats.Summary) []Row {
	return []Row{
		{Section: section, Key: "count", Value: float64(s.Count)},
		{Section: section, Key: "mean", Value: s.Mean},
		{Section: section, Key: "median", Value: s.Median},
		{Section: section, Key: "std_dev", Value: s.StdDev},
		{Section: section, Key: "min", Value: s.Min},
		{Section: section, Key: "max", Value: s.Max},
		{Section: section, Key: "skewness", Value: s.Skewness},
		{Section: section, Key: "kurtosis", Value: s.Kurtosis},
		{Section: section, Key: "q25", Value: s.Q25},
		{Section: section, Key: "q75", Value: s.Q75},
		{Section: section, Key: "ci95_lower", Value: s.CI95.Lower},
		{Section: section, Key: "ci95_upper", Value: s.CI95.Upper},
	}
}

// Analysis 把 analysis.Report 适配为 Flattener.
type Analysis struct {
	*analysis.Report
}

func (a Analysis) Rows() []Row {
	r := a.Report
	rows := []Row{
		{Section: "run", Key: "run_id", Text: r.RunID.String()},
		{Section: "run", Key: "model", Text: r.Model},
		{Section: "run", Key: "source", Text: r.Source},
		{Section: "run", Key: "initial_value", Value: r.InitialValue},
		{Section: "run", Key: "num_paths", Value: float64(r.NumPaths)},
		{Section: "run", Key: "steps", Value: float64(r.Steps)},
		{Section: "run", Key: "dt", Value: r.Dt},
		{Section: "run", Key: "seed", Text: strconv.FormatUint(r.Seed, 10)},
		{Section: "run", Key: "elapsed_seconds", Value: r.Elapsed.Seconds()},
	}
	rows = append(rows, SummaryRows("price", r.Price)...)
	rows = append(rows, SummaryRows("return", r.Return)...)
	rows = append(rows,
		Row{Section: "risk", Key: "confidence", Value: r.Risk.Confidence},
		Row{Section: "risk", Key: "var", Value: r.Risk.VaR},
		Row{Section: "risk", Key: "cvar", Value: r.Risk.CVaR},
		Row{Section: "risk", Key: "volatility", Value: r.Risk.Volatility},
		Row{Section: "risk", Key: "sharpe", Value: r.Risk.Sharpe},
		Row{Section: "risk", Key: "max_drawdown", Value: r.Risk.MaxDrawdown},
		Row{Section: "risk", Key: "worst_drawdown", Value: r.Risk.WorstDrawdown},
	)
	for _, p := range r.Percentiles {
		rows = append(rows, Row{Section: "percentile", Key: "p" + levelKey(p.Level), Value: p.Value})
	}
	conv := 0.0
	if r.Convergence.Converged {
		conv = 1
	}
	rows = append(rows,
		Row{Section: "convergence", Key: "standard_error", Value: r.Convergence.StandardError},
		Row{Section: "convergence", Key: "mc_standard_error", Value: r.Convergence.MonteCarloStandardError},
		Row{Section: "convergence", Key: "effective_sample_size", Value: r.Convergence.EffectiveSampleSize},
		Row{Section: "convergence", Key: "converged", Value: conv},
	)
	for _, p := range r.Probabilities {
		rows = append(rows, Row{
			Section: "probability",
			Key:     ">=" + strconv.FormatFloat(p.Target, 'f', -1, 64),
			Value:   p.Probability,
		})
	}
	return rows
}

// levelKey 0.05 -> "5", 0.995 -> "99.5".
func levelKey(level float64) string {
	return decimal.NewFromFloat(level).Shift(2).String()
}
