package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/mcsim/config"
	"github.com/wyfcoding/mcsim/xerrors"
)

func (c *cli) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "查看或生成配置文件",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "输出合并标志与环境变量后的最终配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.Write(cmd.OutOrStdout(), c.cfg)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "写出默认配置文件",
		Args:  cobra.ExactArgs(1),
		// 不读取现有配置.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return xerrors.InvalidArgument("%s already exists, use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return xerrors.WrapInternal(err, "stat "+path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "覆盖已存在的文件")

	cmd.AddCommand(show, initCmd)
	return cmd
}
