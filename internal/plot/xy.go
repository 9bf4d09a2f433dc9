package plot

import (
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
)

// XYOptions names the columns behind xs/ys and overrides the derived labels.
type XYOptions struct {
	XColumn string
	YColumn string
	Title   string
	XLabel  string
	YLabel  string
	// Alpha is the point opacity for scatter plots; zero means 0.7.
	Alpha float64
	Size  Size
}

func (o XYOptions) labels(defaultTitle string) (title, x, y string) {
	title, x, y = o.Title, o.XLabel, o.YLabel
	if title == "" {
		title = defaultTitle
	}
	if x == "" {
		x = o.XColumn
	}
	if y == "" {
		y = o.YColumn
	}
	return title, x, y
}

// pairs drops positions where either coordinate is missing.
func pairs(xs, ys []float64) ([]float64, []float64, error) {
	if len(xs) != len(ys) {
		return nil, nil, fmt.Errorf("x has %d values, y has %d", len(xs), len(ys))
	}
	outX := make([]float64, 0, len(xs))
	outY := make([]float64, 0, len(ys))
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		outX = append(outX, xs[i])
		outY = append(outY, ys[i])
	}
	if len(outX) == 0 {
		return nil, nil, fmt.Errorf("no complete (x, y) pairs")
	}
	return outX, outY, nil
}

// Scatter renders ys against xs as unconnected points.
func Scatter(w io.Writer, xs, ys []float64, opts XYOptions) error {
	alpha := opts.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = 0.7
	}
	title, xl, yl := opts.labels(fmt.Sprintf("Scatter Plot of %s vs %s", opts.YColumn, opts.XColumn))
	return renderXY(w, xs, ys, title, xl, yl, opts.Size, pointStyle(colorBlue, alpha))
}

// Line renders ys over xs as a line with point markers, in input order.
func Line(w io.Writer, xs, ys []float64, opts XYOptions) error {
	title, xl, yl := opts.labels(fmt.Sprintf("Line Plot of %s over %s", opts.YColumn, opts.XColumn))
	style := chart.Style{
		StrokeColor: colorBlue,
		StrokeWidth: 1.5,
		DotColor:    colorBlue,
		DotWidth:    3,
	}
	return renderXY(w, xs, ys, title, xl, yl, opts.Size, style)
}

func renderXY(w io.Writer, xs, ys []float64, title, xLabel, yLabel string, size Size, style chart.Style) error {
	xs, ys, err := pairs(xs, ys)
	if err != nil {
		return err
	}
	size = size.orDefault(DefaultSize)

	ch := chart.Chart{
		Title:      title,
		Width:      size.Width,
		Height:     size.Height,
		Background: background(),
		XAxis: chart.XAxis{
			Name:           xLabel,
			Range:          paddedRange(xs, 1),
			GridMajorStyle: gridStyle(),
		},
		YAxis: chart.YAxis{
			Name:           yLabel,
			Range:          paddedRange(ys, 1),
			GridMajorStyle: gridStyle(),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: yLabel, XValues: xs, YValues: ys, Style: style},
		},
	}
	return ch.Render(chart.PNG, w)
}
