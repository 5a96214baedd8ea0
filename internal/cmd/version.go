package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/invisibility-inc/devent/internal/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s/%s, %s)\n",
				buildinfo.Binary, buildinfo.Version(), runtime.GOOS, runtime.GOARCH, runtime.Version())
		},
	}
}
