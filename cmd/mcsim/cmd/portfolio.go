package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/mcsim/forecast"
	"github.com/wyfcoding/mcsim/report"
)

func (c *cli) newPortfolioCommand() *cobra.Command {
	var mixing string
	cmd := &cobra.Command{
		Use:     "portfolio",
		Short:   "对配置中的资产做相关路径模拟并输出组合风险",
		Example: "  mcsim portfolio -c configs/mcsim.toml --mixing cholesky",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if mixing != "" {
				c.cfg.Portfolio.Mixing = mixing
			}
			return c.withService(cmd, func(ctx context.Context, s *forecast.Service) error {
				rep, err := s.RunPortfolio(ctx)
				if err != nil {
					return err
				}
				return c.writeReport(cmd, func(w *report.Writer, o io.Writer) error {
					return w.Write(o, rep)
				})
			})
		},
	}
	cmd.Flags().StringVar(&mixing, "mixing", "", "相关性混合方式: linear, cholesky")
	return cmd
}
