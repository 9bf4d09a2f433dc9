// Command notebook exposes the research notebook helpers: database probing,
// intermediate data files, generic charts and forecast windows.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/02loveslollipop/vitals-forecast-viewer/internal/config"
	"github.com/02loveslollipop/vitals-forecast-viewer/internal/logging"
)

// app carries what every subcommand needs once the root has loaded it.
type app struct {
	cfg config.Config
	log zerolog.Logger
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		l := logging.Logger()
		l.Error().Err(err).Msg("notebook failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var envFile string

	root := &cobra.Command{
		Use:           "notebook",
		Short:         "Helpers for exploring the clinical research database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.Init(logging.Config{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Load variables from this .env file (default: ./.env)")

	root.AddCommand(
		newDBInfoCmd(a),
		newQueryCmd(a),
		newConvertCmd(a),
		newForecastCmd(a),
		newHistCmd(a),
		newScatterCmd(a),
		newLineCmd(a),
		newCorrCmd(a),
		newServeCmd(a),
		newStampCmd(),
	)
	return root
}
