package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invisibility-inc/devent/pkg/screencap"
)

func newMonitorsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "monitors",
		Short: "List capturable displays",
		RunE: func(cmd *cobra.Command, _ []string) error {
			monitors := screencap.ListMonitors()
			if len(monitors) == 0 {
				return fmt.Errorf("no capturable display found")
			}
			for _, monitor := range monitors {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", monitor.ID, monitor.Name)
			}
			return nil
		},
	}
}
