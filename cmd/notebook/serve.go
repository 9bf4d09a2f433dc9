package main

import (
	"github.com/spf13/cobra"

	"github.com/02loveslollipop/vitals-forecast-viewer/internal/frame"
	httpserver "github.com/02loveslollipop/vitals-forecast-viewer/internal/http"
)

func newServeCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve forecast plots over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var source httpserver.SeriesSource
			if input != "" {
				f, err := frame.Load(input)
				if err != nil {
					return err
				}
				source = httpserver.FrameSource{Frame: f}
				a.log.Info().Str("file", input).Int("rows", f.Len()).Msg("serving table from file")
			} else {
				store, err := a.connect(ctx)
				if err != nil {
					return err
				}
				defer store.Close()
				source = store
			}

			srv := httpserver.New(a.cfg, source, a.log)
			a.log.Info().Str("addr", a.cfg.ListenAddr()).Msg("REST API listening")
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Serve this table instead of the database")
	return cmd
}
