package plot

import (
	"errors"
	"io"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/02loveslollipop/vitals-forecast-viewer/internal/forecast"
)

// ForecastDrawer draws forecast plots at a fixed size. It satisfies
// forecast.Drawer.
type ForecastDrawer struct {
	Size Size
}

// Draw renders p as PNG.
func (d ForecastDrawer) Draw(w io.Writer, p forecast.Plot) error {
	return Forecast(w, p, d.Size)
}

// Forecast renders the historical line, the boundary marker, the forecast
// line and the confidence band described by p.
func Forecast(w io.Writer, p forecast.Plot, size Size) error {
	if p.Empty() {
		return errors.New("forecast plot has no series")
	}
	size = size.orDefault(DefaultSize)

	var xs, ys []float64
	collect := func(t time.Time, y float64) {
		xs = append(xs, chart.TimeToFloat64(t))
		ys = append(ys, y)
	}
	if p.Historical != nil {
		for _, pt := range p.Historical.Points {
			collect(pt.T, pt.Y)
		}
	}
	if p.Forecast != nil {
		for _, pt := range p.Forecast.Points {
			collect(pt.T, pt.Y)
		}
	}
	if p.Band != nil {
		for _, bp := range p.Band.Points {
			collect(bp.T, bp.Lower)
			collect(bp.T, bp.Upper)
		}
	}
	if p.Boundary != nil {
		xs = append(xs, chart.TimeToFloat64(p.Boundary.At))
	}

	xRange := paddedRange(xs, float64(24*time.Hour))
	yRange := paddedRange(ys, 1)

	series := make([]chart.Series, 0, 4)
	if p.Band != nil && len(p.Band.Points) > 0 {
		series = append(series, newBandSeries(*p.Band))
	}
	if p.Historical != nil {
		series = append(series, lineSeries(*p.Historical, chart.Style{
			StrokeColor: colorBlue,
			StrokeWidth: 2,
		}))
	}
	if p.Forecast != nil {
		series = append(series, lineSeries(*p.Forecast, chart.Style{
			StrokeColor:     colorOrange,
			StrokeWidth:     2,
			StrokeDashArray: []float64{6, 4},
		}))
	}
	if p.Boundary != nil {
		series = append(series, chart.TimeSeries{
			Name:    p.Boundary.Label,
			XValues: []time.Time{p.Boundary.At, p.Boundary.At},
			YValues: []float64{yRange.Min, yRange.Max},
			Style: chart.Style{
				StrokeColor:     colorGray,
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{3, 3},
			},
		})
	}

	ch := chart.Chart{
		Title:      p.Title,
		Width:      size.Width,
		Height:     size.Height,
		Background: background(),
		XAxis: chart.XAxis{
			Name:           p.XLabel,
			Range:          xRange,
			ValueFormatter: dateFormatter,
			GridMajorStyle: gridStyle(),
		},
		YAxis: chart.YAxis{
			Name:           p.YLabel,
			Range:          yRange,
			GridMajorStyle: gridStyle(),
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

func lineSeries(l forecast.Line, style chart.Style) chart.TimeSeries {
	ts := chart.TimeSeries{
		Name:    l.Label,
		Style:   style,
		XValues: make([]time.Time, len(l.Points)),
		YValues: make([]float64, len(l.Points)),
	}
	for i, pt := range l.Points {
		ts.XValues[i] = pt.T
		ts.YValues[i] = pt.Y
	}
	return ts
}

// bandSeries shades the polygon between the upper and lower bounds. Its
// values walk the upper edge forward and the lower edge back, so the chart
// ranges include both bounds.
type bandSeries struct {
	name  string
	style chart.Style
	xs    []float64
	lower []float64
	upper []float64
}

func newBandSeries(b forecast.Band) bandSeries {
	s := bandSeries{
		name: b.Label,
		style: chart.Style{
			FillColor:   colorBandFill,
			StrokeColor: colorBandFill,
			StrokeWidth: 8,
		},
		xs:    make([]float64, len(b.Points)),
		lower: make([]float64, len(b.Points)),
		upper: make([]float64, len(b.Points)),
	}
	for i, bp := range b.Points {
		s.xs[i] = chart.TimeToFloat64(bp.T)
		s.lower[i] = bp.Lower
		s.upper[i] = bp.Upper
	}
	return s
}

func (b bandSeries) GetName() string { return b.name }

func (b bandSeries) GetStyle() chart.Style { return b.style }

func (b bandSeries) GetYAxis() chart.YAxisType { return chart.YAxisPrimary }

func (b bandSeries) Len() int { return 2 * len(b.xs) }

func (b bandSeries) GetValues(i int) (float64, float64) {
	n := len(b.xs)
	if i < n {
		return b.xs[i], b.upper[i]
	}
	j := 2*n - 1 - i
	return b.xs[j], b.lower[j]
}

func (b bandSeries) Validate() error {
	if len(b.xs) == 0 {
		return errors.New("band series has no values")
	}
	if len(b.lower) != len(b.xs) || len(b.upper) != len(b.xs) {
		return errors.New("band series bounds are misaligned")
	}
	return nil
}

func (b bandSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	if len(b.xs) == 0 {
		return
	}
	r.SetFillColor(b.style.FillColor)
	r.SetStrokeColor(b.style.FillColor)
	r.SetStrokeWidth(0)
	for i := 0; i < b.Len(); i++ {
		vx, vy := b.GetValues(i)
		x := canvasBox.Left + xrange.Translate(vx)
		y := canvasBox.Bottom - yrange.Translate(vy)
		if i == 0 {
			r.MoveTo(x, y)
		} else {
			r.LineTo(x, y)
		}
	}
	r.Close()
	r.Fill()
}
