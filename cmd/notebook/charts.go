package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/02loveslollipop/vitals-forecast-viewer/internal/plot"
)

// chartSource holds the flags shared by every generic chart command.
type chartSource struct {
	input string
	query string
	out   string
	title string
}

func (s *chartSource) bind(cmd *cobra.Command, defaultOut string) {
	cmd.Flags().StringVarP(&s.input, "input", "i", "", "Input table (.csv or .xlsx)")
	cmd.Flags().StringVar(&s.query, "query", "", "Read the table from this SQL query instead")
	cmd.Flags().StringVarP(&s.out, "out", "o", defaultOut, "Output PNG")
	cmd.Flags().StringVar(&s.title, "title", "", "Chart title")
}

func (a *app) size() plot.Size {
	return plot.Size{Width: a.cfg.ChartWidth, Height: a.cfg.ChartHeight}
}

func (a *app) writeChart(path string, draw func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	a.log.Info().Str("file", path).Msg("chart written")
	return nil
}

func newHistCmd(a *app) *cobra.Command {
	var src chartSource
	var column, xLabel, yLabel string
	var bins int
	cmd := &cobra.Command{
		Use:   "hist",
		Short: "Histogram of one numeric column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := a.loadFrame(cmd.Context(), src.input, src.query)
			if err != nil {
				return err
			}
			values, err := f.Floats(column)
			if err != nil {
				return err
			}
			return a.writeChart(src.out, func(buf *bytes.Buffer) error {
				return plot.Histogram(buf, values, plot.HistogramOptions{
					Column: column,
					Bins:   bins,
					Title:  src.title,
					XLabel: xLabel,
					YLabel: yLabel,
					Size:   a.size(),
				})
			})
		},
	}
	src.bind(cmd, "histogram.png")
	cmd.Flags().StringVar(&column, "column", "", "Column to bin")
	cmd.Flags().IntVar(&bins, "bins", 20, "Number of bins")
	cmd.Flags().StringVar(&xLabel, "xlabel", "", "X axis label (default: column)")
	cmd.Flags().StringVar(&yLabel, "ylabel", "Frequency", "Y axis label")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

type xyFlags struct {
	x, y           string
	xLabel, yLabel string
}

func (f *xyFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.x, "x", "", "X column")
	cmd.Flags().StringVar(&f.y, "y", "", "Y column")
	cmd.Flags().StringVar(&f.xLabel, "xlabel", "", "X axis label (default: x column)")
	cmd.Flags().StringVar(&f.yLabel, "ylabel", "", "Y axis label (default: y column)")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")
}

func newScatterCmd(a *app) *cobra.Command {
	var src chartSource
	var xy xyFlags
	var alpha float64
	cmd := &cobra.Command{
		Use:   "scatter",
		Short: "Scatter plot of two numeric columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.xyChart(cmd, src, xy, func(buf *bytes.Buffer, xs, ys []float64, opts plot.XYOptions) error {
				opts.Alpha = alpha
				return plot.Scatter(buf, xs, ys, opts)
			})
		},
	}
	src.bind(cmd, "scatter.png")
	xy.bind(cmd)
	cmd.Flags().Float64Var(&alpha, "alpha", 0.7, "Point opacity")
	return cmd
}

func newLineCmd(a *app) *cobra.Command {
	var src chartSource
	var xy xyFlags
	cmd := &cobra.Command{
		Use:   "line",
		Short: "Line plot of one numeric column over another",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.xyChart(cmd, src, xy, func(buf *bytes.Buffer, xs, ys []float64, opts plot.XYOptions) error {
				return plot.Line(buf, xs, ys, opts)
			})
		},
	}
	src.bind(cmd, "line.png")
	xy.bind(cmd)
	return cmd
}

func (a *app) xyChart(cmd *cobra.Command, src chartSource, xy xyFlags, draw func(*bytes.Buffer, []float64, []float64, plot.XYOptions) error) error {
	f, err := a.loadFrame(cmd.Context(), src.input, src.query)
	if err != nil {
		return err
	}
	xs, err := f.Floats(xy.x)
	if err != nil {
		return err
	}
	ys, err := f.Floats(xy.y)
	if err != nil {
		return err
	}
	opts := plot.XYOptions{
		XColumn: xy.x,
		YColumn: xy.y,
		Title:   src.title,
		XLabel:  xy.xLabel,
		YLabel:  xy.yLabel,
		Size:    a.size(),
	}
	return a.writeChart(src.out, func(buf *bytes.Buffer) error {
		return draw(buf, xs, ys, opts)
	})
}

func newCorrCmd(a *app) *cobra.Command {
	var src chartSource
	var columns []string
	var annotate bool
	cmd := &cobra.Command{
		Use:   "corr",
		Short: "Correlation matrix heatmap of numeric columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := a.loadFrame(cmd.Context(), src.input, src.query)
			if err != nil {
				return err
			}
			if len(columns) == 0 {
				columns = f.Columns()
			}
			m, err := plot.CorrelationMatrix(f, columns)
			if err != nil {
				return fmt.Errorf("correlation: %w", err)
			}
			return a.writeChart(src.out, func(buf *bytes.Buffer) error {
				return plot.Heatmap(buf, m, plot.HeatmapOptions{Annotate: annotate})
			})
		},
	}
	src.bind(cmd, "correlation.png")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to correlate (default: all)")
	cmd.Flags().BoolVar(&annotate, "annot", true, "Write coefficients in the cells")
	return cmd
}
