package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/mcsim/config"
	"github.com/wyfcoding/mcsim/forecast"
	"github.com/wyfcoding/mcsim/report"
	"github.com/wyfcoding/mcsim/xerrors"
)

func (c *cli) newCompareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compare [scenario...]",
		Short: "并行运行配置中的情景并列输出",
		Long:  "未指定情景名时运行配置文件 [[scenarios]] 中的全部情景.",
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := selectScenarios(c.cfg.Scenarios, args)
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, s *forecast.Service) error {
				outcomes, err := s.Compare(ctx, scenarios)
				if err != nil {
					return err
				}
				names := make([]string, len(outcomes))
				reports := make([]report.Flattener, len(outcomes))
				for i, o := range outcomes {
					names[i] = o.Name
					reports[i] = report.Analysis{Report: o.Report}
				}
				return c.writeReport(cmd, func(w *report.Writer, out io.Writer) error {
					return w.WriteComparison(out, names, reports)
				})
			})
		},
	}
}

func selectScenarios(all []config.ScenarioConfig, names []string) ([]config.ScenarioConfig, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]config.ScenarioConfig, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}
	out := make([]config.ScenarioConfig, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, xerrors.InvalidArgument("unknown scenario %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}
