// Package cmd wires the devent CLI: configuration loading, logger
// construction, and the subcommands that drive recording, analysis,
// frame display, and uploads.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/invisibility-inc/devent/pkg/config"
	"github.com/invisibility-inc/devent/pkg/logging"
)

// App carries the facilities shared by every subcommand, initialised
// once before the first RunE fires.
type App struct {
	Config config.Config
	Logger *slog.Logger
}

// NewRootCmd constructs the devent command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}
	var (
		configPath string
		logLevel   string
		logFormat  string
	)

	root := &cobra.Command{
		Use:   "devent",
		Short: "Record synchronized screen video and input events into datasets",
		Long: `devent records the screen alongside every pointer and keyboard event,
stamped against a shared session clock, and persists each session as a
self-contained dataset: one video, one event log, one metadata record.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			if logFormat != "" {
				cfg.Logging.Format = logFormat
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}

			app.Config = cfg
			app.Logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: ./"+config.DefaultFileName+" if present)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log format (json, console)")

	root.AddCommand(
		newRecordCmd(app),
		newMonitorsCmd(app),
		newAnalyzeCmd(app),
		newDisplayCmd(app),
		newUploadCmd(app),
		newVersionCmd(),
	)

	return root
}
