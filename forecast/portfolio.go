package forecast

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/wyfcoding/mcsim/algorithm/finance"
	algomath "github.com/wyfcoding/mcsim/algorithm/math"
	"github.com/wyfcoding/mcsim/algorithm/model"
	"github.com/wyfcoding/mcsim/algorithm/pathgen"
	"github.com/wyfcoding/mcsim/algorithm/stats"
	"github.com/wyfcoding/mcsim/report"
	"github.com/wyfcoding/mcsim/tracing"
	"github.com/wyfcoding/mcsim/xerrors"
)

// AssetReport 组合中单个资产的模拟汇总.
type AssetReport struct {
	Name         string        `json:"name" yaml:"name"`
	Model        string        `json:"model" yaml:"model"`
	Weight       float64       `json:"weight" yaml:"weight"`
	InitialValue float64       `json:"initial_value" yaml:"initial_value"`
	Final        stats.Summary `json:"final" yaml:"final"`
	Return       stats.Summary `json:"return" yaml:"return"`
}

// PortfolioReport 多资产相关模拟的组合报告.
type PortfolioReport struct {
	Assets              []AssetReport   `json:"assets" yaml:"assets"`
	Mixing              string          `json:"mixing" yaml:"mixing"`
	Confidence          float64         `json:"confidence" yaml:"confidence"`
	VaR                 float64         `json:"var" yaml:"var"`
	CVaR                float64         `json:"cvar" yaml:"cvar"`
	Volatility          float64         `json:"volatility" yaml:"volatility"`
	Variance            float64         `json:"variance" yaml:"variance"` // wᵀΣw，Σ 为资产收益样本协方差
	InitialValue        decimal.Decimal `json:"initial_value" yaml:"initial_value"`
	ExpectedValue       decimal.Decimal `json:"expected_value" yaml:"expected_value"` // 以各资产终值均值计的组合价值
	RealizedCorrelation [][]float64     `json:"realized_correlation" yaml:"realized_correlation"`
	Elapsed             time.Duration   `json:"elapsed" yaml:"elapsed"`
}

// Rows 展平为报告行.
func (p *PortfolioReport) Rows() []report.Row {
	rows := []report.Row{
		{Section: "portfolio", Key: "mixing", Text: p.Mixing},
		{Section: "portfolio", Key: "confidence", Value: p.Confidence},
		{Section: "portfolio", Key: "var", Value: p.VaR},
		{Section: "portfolio", Key: "cvar", Value: p.CVaR},
		{Section: "portfolio", Key: "volatility", Value: p.Volatility},
		{Section: "portfolio", Key: "variance", Value: p.Variance},
		{Section: "portfolio", Key: "initial_value", Value: p.InitialValue.InexactFloat64()},
		{Section: "portfolio", Key: "expected_value", Value: p.ExpectedValue.InexactFloat64()},
		{Section: "portfolio", Key: "elapsed_seconds", Value: p.Elapsed.Seconds()},
	}
	for _, a := range p.Assets {
		section := "asset." + a.Name
		rows = append(rows,
			report.Row{Section: section, Key: "model", Text: a.Model},
			report.Row{Section: section, Key: "weight", Value: a.Weight},
			report.Row{Section: section, Key: "initial_value", Value: a.InitialValue},
		)
		rows = append(rows, report.SummaryRows(section, a.Final)...)
		rows = append(rows,
			report.Row{Section: section, Key: "return_mean", Value: a.Return.Mean},
			report.Row{Section: section, Key: "return_std_dev", Value: a.Return.StdDev},
		)
	}
	for i, row := range p.RealizedCorrelation {
		for j := i + 1; j < len(row); j++ {
			rows = append(rows, report.Row{
				Section: "correlation",
				Key:     p.Assets[i].Name + "~" + p.Assets[j].Name,
				Value:   row[j],
			})
		}
	}
	return rows
}

func parseMixing(s string) (pathgen.Mixing, error) {
	switch strings.ToLower(s) {
	case "", "linear":
		return pathgen.MixLinear, nil
	case "cholesky":
		return pathgen.MixCholesky, nil
	default:
		return 0, xerrors.InvalidArgument("unknown mixing %q", s)
	}
}

// RunPortfolio 对配置中的资产做相关路径模拟并计算组合风险.
// 未给出相关矩阵时使用单位阵；所有权重为 0 时按等权处理.
func (s *Service) RunPortfolio(ctx context.Context) (rep *PortfolioReport, err error) {
	ctx, span := tracing.StartSpan(ctx, "forecast.portfolio")
	defer func() {
		tracing.SetError(ctx, err)
		span.End()
	}()

	pc := s.cfg.Portfolio
	k := len(pc.Assets)
	if k == 0 {
		return nil, xerrors.ErrEmptyData.WithDetail("portfolio has no assets")
	}
	tracing.AddTag(ctx, "assets", k)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := make([]string, k)
	weights := make([]float64, k)
	models := make([]model.Model, k)
	initials := make([]float64, k)
	var weightSum float64
	for i, a := range pc.Assets {
		names[i] = a.Name
		weights[i] = a.Weight
		weightSum += a.Weight
		if models[i], err = s.BuildModel(ctx, a.Model); err != nil {
			return nil, err
		}
		initials[i] = models[i].InitialValue()
	}

	var port *finance.Portfolio
	if weightSum == 0 {
		port, err = finance.EqualWeight(names)
	} else {
		port, err = finance.NewPortfolio(names, weights)
	}
	if err != nil {
		return nil, err
	}

	mixing, err := parseMixing(pc.Mixing)
	if err != nil {
		return nil, err
	}
	corr := pc.Correlation
	if len(corr) == 0 {
		corr = algomath.Identity(k).Slices()
	}

	src, err := s.BuildSource()
	if err != nil {
		return nil, err
	}
	gen, err := pathgen.NewGenerator(models[0], src, pathgen.WithMixing(mixing), pathgen.WithAssetModels(models...))
	if err != nil {
		return nil, err
	}

	sc := s.cfg.Simulation
	start := time.Now()
	done := s.logger.LogDuration(ctx, "portfolio simulation", "assets", k, "paths", sc.Paths, "mixing", mixing.String())
	paths, err := gen.GenerateCorrelatedPaths(sc.Paths, initials, sc.Steps, sc.Dt, corr)
	if err != nil {
		s.logger.ErrorContext(ctx, "portfolio simulation failed", "error", err)
		return nil, err
	}
	done()

	rep = &PortfolioReport{Mixing: mixing.String(), Confidence: s.cfg.Risk.Confidence}
	assetReturns := make([][]float64, k)
	meanFinals := make([]float64, k)
	for a := range k {
		finals := make([]float64, sc.Paths)
		returns := make([]float64, sc.Paths)
		for i, p := range paths[a] {
			finals[i] = p.Final()
			returns[i] = (finals[i] - initials[a]) / initials[a]
		}
		assetReturns[a] = returns
		final := stats.Analyze(finals)
		meanFinals[a] = final.Mean
		rep.Assets = append(rep.Assets, AssetReport{
			Name:         names[a],
			Model:        models[a].Name(),
			Weight:       port.Weights[a].InexactFloat64(),
			InitialValue: initials[a],
			Final:        final,
			Return:       stats.Analyze(returns),
		})
	}

	risk, err := port.Risk(assetReturns, s.cfg.Risk.Confidence)
	if err != nil {
		return nil, err
	}
	rep.VaR, rep.CVaR, rep.Volatility = risk.VaR, risk.CVaR, risk.Volatility

	cov := make([][]float64, k)
	rep.RealizedCorrelation = make([][]float64, k)
	for i := range k {
		cov[i] = make([]float64, k)
		rep.RealizedCorrelation[i] = make([]float64, k)
		for j := range k {
			cov[i][j] = stat.Covariance(assetReturns[i], assetReturns[j], nil)
			rep.RealizedCorrelation[i][j] = stat.Correlation(assetReturns[i], assetReturns[j], nil)
		}
	}
	if rep.Variance, err = finance.CalculatePortfolioVariance(port.FloatWeights(), cov); err != nil {
		return nil, err
	}
	if rep.InitialValue, err = port.Value(initials); err != nil {
		return nil, err
	}
	if rep.ExpectedValue, err = port.Value(meanFinals); err != nil {
		return nil, err
	}
	rep.Elapsed = time.Since(start)

	s.logger.InfoContext(ctx, "portfolio simulated",
		"var", rep.VaR, "cvar", rep.CVaR, "expected_value", rep.ExpectedValue.String())
	return rep, nil
}
