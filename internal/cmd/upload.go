package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invisibility-inc/devent/pkg/dataset"
	"github.com/invisibility-inc/devent/pkg/upload"
)

func newUploadCmd(app *App) *cobra.Command {
	var (
		datasetDir string
		staging    string
		remoteName string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Stage a completed dataset for remote sync",
		Long: `Copies a completed dataset into the staging directory, refusing
directories that are not complete datasets. Without --dataset the most
recent completed dataset is staged.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := datasetDir
			if dir == "" {
				recent, err := dataset.MostRecent(app.Config.Paths.DatasetsDir)
				if err != nil {
					return fmt.Errorf("resolve most recent dataset: %w", err)
				}
				dir = recent
			}

			stagingDir := staging
			if stagingDir == "" {
				stagingDir = app.Config.Paths.StagingDir
			}

			name, err := upload.Push(cmd.Context(), upload.StagingRemote{Dir: stagingDir}, dir, remoteName)
			if err != nil {
				return err
			}
			app.Logger.Info("dataset staged", "name", name, "staging", stagingDir)
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetDir, "dataset", "", "dataset directory (default: most recent)")
	cmd.Flags().StringVar(&staging, "staging", "", "staging directory override")
	cmd.Flags().StringVar(&remoteName, "name", "", "name on the remote (default: dataset directory name)")

	return cmd
}
