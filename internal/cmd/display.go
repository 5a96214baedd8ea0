package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invisibility-inc/devent/pkg/dataset"
	"github.com/invisibility-inc/devent/pkg/display"
)

func newDisplayCmd(app *App) *cobra.Command {
	var datasetDir string

	cmd := &cobra.Command{
		Use:   "display",
		Short: "Extract a random frame from a recorded dataset",
		Long: `Picks a random frame of the dataset's video, renders it as a JPEG
inside the dataset directory, and prints its path. Without --dataset
the most recent completed dataset is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := datasetDir
			if dir == "" {
				recent, err := dataset.MostRecent(app.Config.Paths.DatasetsDir)
				if err != nil {
					return fmt.Errorf("resolve most recent dataset: %w", err)
				}
				dir = recent
			}

			frame, err := display.RandomFrame(cmd.Context(), dir, display.Options{})
			if err != nil {
				return err
			}
			app.Logger.Info("frame extracted", "index", frame.Index, "total", frame.Total)
			fmt.Fprintln(cmd.OutOrStdout(), frame.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetDir, "dataset", "", "dataset directory (default: most recent)")

	return cmd
}
