// Package plot renders charts to PNG with go-chart: the forecast chart built
// from a forecast.Plot, and generic histogram, scatter, line and correlation
// heatmap helpers for tabular data.
package plot

import (
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Size is the output image size in pixels.
type Size struct {
	Width  int
	Height int
}

// DefaultSize matches the usual notebook figure.
var DefaultSize = Size{Width: 800, Height: 600}

func (s Size) orDefault(def Size) Size {
	if s.Width <= 0 {
		s.Width = def.Width
	}
	if s.Height <= 0 {
		s.Height = def.Height
	}
	return s
}

var (
	colorBlue      = drawing.ColorFromHex("1f77b4")
	colorOrange    = drawing.ColorFromHex("ff7f0e")
	colorGray      = drawing.ColorFromHex("7f7f7f")
	colorGrid      = drawing.ColorFromHex("d9d9d9")
	colorBandFill  = drawing.ColorFromHex("ff7f0e").WithAlpha(64)
	colorEdgeBlack = drawing.ColorFromHex("000000")
)

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}
}

func gridStyle() chart.Style {
	return chart.Style{StrokeColor: colorGrid, StrokeWidth: 1, StrokeDashArray: []float64{4, 4}}
}

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color, alpha float64) chart.Style {
	return chart.Style{
		StrokeColor: drawing.ColorTransparent,
		StrokeWidth: 1,
		DotWidth:    4,
		DotColor:    col.WithAlpha(uint8(math.Round(alpha * 255))),
	}
}

// paddedRange spans vals with a 5% margin; a degenerate span is widened by
// pad on both sides. NaNs are ignored.
func paddedRange(vals []float64, pad float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	if hi == lo {
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	margin := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - margin, Max: hi + margin}
}

// dateFormatter labels time axes whose values are chart.TimeToFloat64 nanos.
func dateFormatter(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("2006-01-02")
	case float64:
		return time.Unix(0, int64(t)).UTC().Format("2006-01-02")
	default:
		return ""
	}
}
