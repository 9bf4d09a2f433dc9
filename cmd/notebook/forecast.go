package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/02loveslollipop/vitals-forecast-viewer/internal/forecast"
	"github.com/02loveslollipop/vitals-forecast-viewer/internal/frame"
	"github.com/02loveslollipop/vitals-forecast-viewer/internal/plot"
)

func newForecastCmd(a *app) *cobra.Command {
	var (
		input   string
		fromDB  bool
		subject string
		metric  string
		horizon int
		out     string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Plot one subject/metric series with its forecast window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var table forecast.Table
			switch {
			case fromDB && input != "":
				return errors.New("use either --input or --from-db, not both")
			case fromDB:
				store, err := a.connect(cmd.Context())
				if err != nil {
					return err
				}
				defer store.Close()
				if table, err = store.FetchObservations(cmd.Context(), subject, metric); err != nil {
					return err
				}
			case input != "":
				f, err := frame.Load(input)
				if err != nil {
					return err
				}
				if table, err = forecast.FromFrameFor(f, subject, metric); err != nil {
					return fmt.Errorf("%s: %w", input, err)
				}
			default:
				return errors.New("one of --input or --from-db is required")
			}

			q := forecast.Query{SubjectID: subject, Metric: metric}
			if cmd.Flags().Changed("horizon") {
				q.HorizonDays = forecast.Days(horizon)
			}
			selector := forecast.NewSelector(a.log)

			if asJSON {
				sel, ok, err := selector.Select(table, q)
				if err != nil {
					return err
				}
				if !ok {
					a.reportNoData(cmd, q)
					return nil
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sel.Plot())
			}

			var buf bytes.Buffer
			drawer := plot.ForecastDrawer{Size: plot.Size{Width: a.cfg.ChartWidth, Height: a.cfg.ChartHeight}}
			ok, err := selector.Render(&buf, table, q, drawer)
			if err != nil {
				return err
			}
			if !ok {
				a.reportNoData(cmd, q)
				return nil
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			a.log.Info().Str("file", out).Msg("forecast chart written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Combined historical/forecast table (.csv or .xlsx)")
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "Read the series from the configured forecast table")
	cmd.Flags().StringVar(&subject, "subject", "", "subject_id to plot")
	cmd.Flags().StringVar(&metric, "metric", "", "Metric to plot")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "Forecast horizon in days (default: all forecast rows)")
	cmd.Flags().StringVarP(&out, "out", "o", "forecast.png", "Output PNG")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the plot description as JSON instead of drawing")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("metric")
	return cmd
}

// reportNoData prints the no-data message when the logger level hides the
// selector's warning.
func (a *app) reportNoData(cmd *cobra.Command, q forecast.Query) {
	if a.log.GetLevel() <= zerolog.WarnLevel {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "no data for this selector: subject %s metric %s\n", q.SubjectID, q.Metric)
}
