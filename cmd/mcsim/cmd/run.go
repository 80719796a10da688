package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/mcsim/forecast"
	"github.com/wyfcoding/mcsim/report"
)

func (c *cli) newRunCommand() *cobra.Command {
	var (
		targets    []float64
		samplesOut string
		pathsOut   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "运行单模型模拟并输出报告",
		Example: `  mcsim run --model gbm --initial-value 7.2 --drift 0.02 --volatility 0.08 --paths 20000
  mcsim run -c configs/mcsim.toml --format json --target 7.5 --samples-out samples.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("target") {
				c.cfg.Risk.Targets = targets
			}
			return c.withService(cmd, func(ctx context.Context, s *forecast.Service) error {
				out, err := s.Run(ctx, c.cfg.Model)
				if err != nil {
					return err
				}
				if err := c.writeReport(cmd, func(w *report.Writer, o io.Writer) error {
					return w.Write(o, report.Analysis{Report: out.Report})
				}); err != nil {
					return err
				}
				return c.writeRaw(ctx, s, out, samplesOut, pathsOut)
			})
		},
	}

	f := cmd.Flags()
	f.String("model", "", "模型类型: gbm, vasicek, hull_white")
	f.Float64("initial-value", 0, "初始价格或初始利率")
	f.Float64("drift", 0, "GBM 漂移率 μ")
	f.Float64("volatility", 0, "波动率 σ")
	f.Float64("mean-reversion", 0, "均值回归速度 a")
	f.Float64("long-term-mean", 0, "Vasicek 长期均值 b")
	f.String("theta", "", "Hull-White θ(t) 表达式，例如 \"0.02 + 0.001 * t\"")
	f.String("history", "", "历史价格 CSV，用于估计 GBM 参数")
	f.Float64SliceVar(&targets, "target", nil, "目标价位，可重复给出")
	f.StringVar(&samplesOut, "samples-out", "", "将每条路径的终值与收益率写入 CSV")
	f.StringVar(&pathsOut, "paths-out", "", "将保留的完整路径写入 CSV")
	c.bind(f, map[string]string{
		"model":          "model.type",
		"initial-value":  "model.initial_value",
		"drift":          "model.drift",
		"volatility":     "model.volatility",
		"mean-reversion": "model.mean_reversion",
		"long-term-mean": "model.long_term_mean",
		"theta":          "model.theta",
		"history":        "model.history",
	})
	return cmd
}

// writeRaw 输出样本与路径明细. 命中缓存的运行没有明细.
func (c *cli) writeRaw(ctx context.Context, s *forecast.Service, out *forecast.Outcome, samplesOut, pathsOut string) error {
	if samplesOut == "" && pathsOut == "" {
		return nil
	}
	if out.Result == nil {
		s.Logger().WarnContext(ctx, "report served from cache, raw samples unavailable")
		return nil
	}
	w, err := c.writer()
	if err != nil {
		return err
	}
	if samplesOut != "" {
		if err := writeFile(samplesOut, func(o io.Writer) error {
			return w.WriteSamples(o, out.Result.SampleSet)
		}); err != nil {
			return err
		}
	}
	if pathsOut != "" {
		return writeFile(pathsOut, func(o io.Writer) error {
			return w.WritePaths(o, out.Result.InitialValue, out.Result.Paths)
		})
	}
	return nil
}
