package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invisibility-inc/devent/pkg/analysis"
	"github.com/invisibility-inc/devent/pkg/dataset"
	"github.com/invisibility-inc/devent/pkg/devent"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	var (
		datasetDir string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarise a recorded dataset",
		Long: `Computes aggregate statistics for a completed dataset: total
duration, event counts per kind, and total pointer travel distance.
Without --dataset the most recent completed dataset is analysed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := datasetDir
			if dir == "" {
				recent, err := dataset.MostRecent(app.Config.Paths.DatasetsDir)
				if err != nil {
					return fmt.Errorf("resolve most recent dataset: %w", err)
				}
				dir = recent
			}

			report, err := analysis.Analyze(dir)
			if err != nil {
				return err
			}

			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dataset:          %s\n", report.DatasetPath)
			fmt.Fprintf(out, "session:          %s\n", report.SessionID)
			fmt.Fprintf(out, "duration:         %.2fs\n", report.TotalDurationSeconds)
			fmt.Fprintf(out, "events:           %d\n", report.TotalEvents)
			for _, kind := range devent.Kinds() {
				if count, ok := report.EventsByKind[kind]; ok {
					fmt.Fprintf(out, "  %-15s %d\n", string(kind)+":", count)
				}
			}
			fmt.Fprintf(out, "pointer distance: %.1fpx\n", report.PointerDistance)
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetDir, "dataset", "", "dataset directory (default: most recent)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the report as JSON")

	return cmd
}
