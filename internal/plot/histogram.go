package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const defaultBins = 20

// Bin is one histogram bucket covering [Lo, Hi).
type Bin struct {
	Lo    float64
	Hi    float64
	Count float64
}

// HistogramOptions mirrors the notebook helper's keyword arguments. Empty
// strings fall back to labels derived from Column.
type HistogramOptions struct {
	Column string
	Bins   int
	Title  string
	XLabel string
	YLabel string
	Size   Size
}

// Bins splits values into n equal-width buckets between their min and max.
// NaNs are dropped; the maximum falls in the last bucket.
func Bins(values []float64, n int) ([]Bin, error) {
	if n <= 0 {
		n = defaultBins
	}
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return nil, errors.New("histogram: no non-missing values")
	}
	sort.Float64s(clean)

	lo, hi := clean[0], clean[len(clean)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	dividers := make([]float64, n+1)
	floats.Span(dividers, lo, hi)
	edges := append([]float64(nil), dividers...)
	dividers[n] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, clean, nil)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Lo: edges[i], Hi: edges[i+1], Count: counts[i]}
	}
	return bins, nil
}

// labels returns the chart title and y axis name. Bar charts carry no x axis
// name, so an x label only shows up in the default title.
func (o HistogramOptions) labels() (title, yLabel string) {
	title = o.Title
	if title == "" {
		title = "Histogram of " + o.Column
		if o.XLabel != "" && o.XLabel != o.Column {
			title += " (" + o.XLabel + ")"
		}
	}
	yLabel = o.YLabel
	if yLabel == "" {
		yLabel = "Frequency"
	}
	return title, yLabel
}

// Histogram renders a frequency bar chart of values.
func Histogram(w io.Writer, values []float64, opts HistogramOptions) error {
	bins, err := Bins(values, opts.Bins)
	if err != nil {
		return err
	}
	size := opts.Size.orDefault(DefaultSize)

	title, yLabel := opts.labels()

	maxCount := 0.0
	bars := make([]chart.Value, len(bins))
	for i, b := range bins {
		maxCount = math.Max(maxCount, b.Count)
		bars[i] = chart.Value{
			Value: b.Count,
			Label: fmt.Sprintf("%.3g", b.Lo),
			Style: chart.Style{
				FillColor:   colorBlue,
				StrokeColor: colorEdgeBlack,
				StrokeWidth: 1,
			},
		}
	}

	plotWidth := size.Width - 120
	slot := plotWidth / len(bars)
	if slot < 2 {
		slot = 2
	}
	barWidth := slot * 9 / 10
	if barWidth < 1 {
		barWidth = 1
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      size.Width,
		Height:     size.Height,
		Background: background(),
		BarWidth:   barWidth,
		BarSpacing: slot - barWidth,
		XAxis:      chart.Style{FontSize: 7},
		YAxis: chart.YAxis{
			Name:           yLabel,
			Range:          &chart.ContinuousRange{Min: 0, Max: math.Max(1, maxCount*1.1)},
			GridMajorStyle: gridStyle(),
		},
		Bars: bars,
	}
	return bc.Render(chart.PNG, w)
}
