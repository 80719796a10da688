package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/mcsim/forecast"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "输出版本信息",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s %s/%s)\n",
				forecast.ServiceName, forecast.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
