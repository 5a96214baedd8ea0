package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/invisibility-inc/devent/pkg/recorder"
)

func newRecordCmd(app *App) *cobra.Command {
	var (
		duration int
		output   string
		monitor  string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a screen and input session into a new dataset",
		Long: `Starts screen capture and the input event listener together and
records until the requested duration elapses or the process receives an
interrupt. On success the dataset directory path is printed to stdout.`,
		Example: `  devent record --duration 60
  devent record --monitor 1 --output ./datasets`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The notifier fires before the session's done channel
			// closes, so reading failure after the wait is safe.
			var failure error
			notifier := recorder.NotifierFuncs{
				Complete: func(datasetPath string) {
					fmt.Fprintln(cmd.OutOrStdout(), datasetPath)
				},
				Error: func(code, message string) {
					failure = fmt.Errorf("recording failed (%s): %s", code, message)
				},
			}

			coord, err := recorder.New(recorder.Options{
				Config:   app.Config,
				Logger:   app.Logger,
				Notifier: notifier,
			})
			if err != nil {
				return err
			}

			session, err := coord.Start(recorder.StartRequest{
				DurationSeconds: duration,
				Monitor:         monitor,
				OutputDir:       output,
			})
			if err != nil {
				return err
			}
			app.Logger.Info("recording", "dataset", session.DatasetID, "monitor", session.Monitor.ID)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			done := coord.Done()
			select {
			case <-ctx.Done():
				app.Logger.Info("interrupt received, finalizing")
				if err := coord.Stop(); err != nil && !errors.Is(err, recorder.ErrNotRecording) {
					return err
				}
				<-done
			case <-done:
			}
			return failure
		},
	}

	cmd.Flags().IntVar(&duration, "duration", 0, "recording duration in seconds (0 records until interrupted)")
	cmd.Flags().StringVar(&output, "output", "", "datasets directory override")
	cmd.Flags().StringVar(&monitor, "monitor", "", "monitor id to capture (default: first display)")

	return cmd
}
