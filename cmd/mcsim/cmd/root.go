// Package cmd 实现 mcsim 命令行.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wyfcoding/mcsim/config"
	"github.com/wyfcoding/mcsim/forecast"
	"github.com/wyfcoding/mcsim/logging"
	"github.com/wyfcoding/mcsim/report"
	"github.com/wyfcoding/mcsim/xerrors"
)

type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand 创建根命令. 配置优先级：命令行标志 > MCSIM_* 环境变量 > 配置文件 > 默认值.
func NewRootCommand() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:   "mcsim",
		Short: "蒙特卡洛模拟引擎",
		Long: `mcsim 使用 GBM、Vasicek 与 Hull-White 模型生成随机路径，
计算价格分布、VaR/CVaR、夏普比率、回撤与收敛诊断.

命令:
  run        单模型模拟
  portfolio  多资产相关模拟与组合风险
  compare    并行运行多个情景并列对比
  config     查看或生成配置文件`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.load()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return xerrors.Wrap(err, xerrors.ErrInvalidArg, "invalid flag")
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&c.cfgFile, "config", "c", "", "TOML 配置文件 (为空时使用默认值与环境变量)")
	pf.StringP("format", "f", "", "报告格式: text, csv, json, yaml")
	pf.StringP("output", "o", "", "报告输出文件 (默认标准输出)")
	pf.Int32("precision", report.DefaultPrecision, "报告小数位数")
	pf.String("log-level", "", "日志级别: debug, info, warn, error")
	pf.Int("paths", 0, "模拟路径数")
	pf.Int("steps", 0, "每条路径的步数")
	pf.Float64("dt", 0, "时间步长 (年)")
	pf.Uint64("seed", 0, "随机种子")
	pf.Int("threads", 0, "并行线程数 (0 表示 GOMAXPROCS)")
	pf.Int("batch-size", 0, "分批大小 (0 表示不分批)")
	pf.String("source", "", "随机源: normal, sobol")
	pf.Bool("antithetic", false, "启用对偶变量")
	c.bind(pf, map[string]string{
		"format":     "report.format",
		"output":     "report.output",
		"precision":  "report.precision",
		"log-level":  "log.level",
		"paths":      "simulation.paths",
		"steps":      "simulation.steps",
		"dt":         "simulation.dt",
		"seed":       "simulation.seed",
		"threads":    "simulation.threads",
		"batch-size": "simulation.batch_size",
		"source":     "simulation.source",
		"antithetic": "simulation.antithetic",
	})

	root.AddCommand(
		c.newRunCommand(),
		c.newPortfolioCommand(),
		c.newCompareCommand(),
		c.newConfigCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute 运行命令行并返回进程退出码.
func Execute(ctx context.Context) int {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "mcsim: %v\n", err)
		return ExitCode(err)
	}
	return 0
}

// ExitCode 参数错误为 2，文件不存在为 3，其余为 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := xerrors.FromError(err); ok {
		return e.ExitCode()
	}
	return 1
}

// bind 将标志绑定到配置键，仅显式给出的标志覆盖配置.
func (c *cli) bind(fs *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := c.v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func (c *cli) load() error {
	if err := config.ReadFile(c.v, c.cfgFile); err != nil {
		return err
	}
	cfg, err := config.FromViper(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// withService 创建并启动服务，fn 返回后关闭.
func (c *cli) withService(cmd *cobra.Command, fn func(context.Context, *forecast.Service) error) (err error) {
	ctx := cmd.Context()
	lc := c.cfg.Log.ToLogging(forecast.ServiceName)
	lc.Output = cmd.ErrOrStderr()
	logger := logging.NewFromConfig(lc)
	logging.SetDefault(logger)

	s, err := forecast.New(c.cfg, forecast.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return errors.Join(err, s.Close(context.WithoutCancel(ctx)))
	}
	defer func() {
		err = errors.Join(err, s.Close(context.WithoutCancel(ctx)))
	}()
	return fn(ctx, s)
}

func (c *cli) writer() (*report.Writer, error) {
	return report.NewWriter(c.cfg.Report.Format, c.cfg.Report.Precision)
}

// writeReport 写到 --output 指定的文件，未指定时写标准输出.
func (c *cli) writeReport(cmd *cobra.Command, fn func(*report.Writer, io.Writer) error) error {
	w, err := c.writer()
	if err != nil {
		return err
	}
	if c.cfg.Report.Output == "" {
		return fn(w, cmd.OutOrStdout())
	}
	return writeFile(c.cfg.Report.Output, func(out io.Writer) error { return fn(w, out) })
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return xerrors.WrapInternal(err, "create "+path)
	}
	if err := fn(f); err != nil {
		return errors.Join(err, f.Close())
	}
	if err := f.Close(); err != nil {
		return xerrors.WrapInternal(err, "close "+path)
	}
	return nil
}
