package forecast

import (
	"fmt"
	"time"
)

// Legend labels used by Plot.
const (
	LabelHistorical = "Historical"
	LabelForecast   = "Forecast"
	LabelBoundary   = "Forecast start"
	LabelBand       = "Confidence interval"
)

// Point is one plotted sample.
type Point struct {
	T time.Time `json:"t"`
	Y float64   `json:"y"`
}

// Line is a named polyline.
type Line struct {
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// Marker is a vertical rule at a timestamp.
type Marker struct {
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

// BandPoint bounds the confidence band at one timestamp.
type BandPoint struct {
	T     time.Time `json:"t"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// Band is a shaded region between lower and upper bounds.
type Band struct {
	Label  string      `json:"label"`
	Points []BandPoint `json:"points"`
}

// Plot describes a forecast chart independently of any drawing backend.
type Plot struct {
	Title      string  `json:"title"`
	XLabel     string  `json:"x_label"`
	YLabel     string  `json:"y_label"`
	Historical *Line   `json:"historical,omitempty"`
	Boundary   *Marker `json:"boundary,omitempty"`
	Forecast   *Line   `json:"forecast,omitempty"`
	Band       *Band   `json:"band,omitempty"`
}

// Empty reports whether the plot has nothing to draw.
func (p Plot) Empty() bool {
	return p.Historical == nil && p.Forecast == nil && p.Band == nil
}

// Legend lists the labels of the drawn elements in drawing order.
func (p Plot) Legend() []string {
	out := make([]string, 0, 4)
	if p.Historical != nil {
		out = append(out, p.Historical.Label)
	}
	if p.Boundary != nil {
		out = append(out, p.Boundary.Label)
	}
	if p.Forecast != nil {
		out = append(out, p.Forecast.Label)
	}
	if p.Band != nil {
		out = append(out, p.Band.Label)
	}
	return out
}

// Plot builds the renderable description of the selection. Rows lacking the
// plotted value are skipped.
func (s Selection) Plot() Plot {
	p := Plot{
		Title:  s.Title(),
		XLabel: ColChartTime,
		YLabel: s.Metric,
	}

	if pts := points(s.Historical, func(o Observation) *float64 { return o.Value }); len(pts) > 0 {
		p.Historical = &Line{Label: LabelHistorical, Points: pts}
	}
	if s.Boundary != nil {
		p.Boundary = &Marker{Label: LabelBoundary, At: *s.Boundary}
	}
	if pts := points(s.Forecast, func(o Observation) *float64 { return o.Forecast }); len(pts) > 0 {
		p.Forecast = &Line{Label: LabelForecast, Points: pts}
	}

	if s.HasBand {
		band := &Band{Label: LabelBand}
		for _, o := range s.Forecast {
			if o.ForecastLower == nil || o.ForecastUpper == nil {
				continue
			}
			band.Points = append(band.Points, BandPoint{T: o.ChartTime, Lower: *o.ForecastLower, Upper: *o.ForecastUpper})
		}
		p.Band = band
	}
	return p
}

// Title names the subject, the metric and the horizon, if any.
func (s Selection) Title() string {
	title := fmt.Sprintf("Subject %s - %s forecast", s.SubjectID, s.Metric)
	if s.Horizon != nil {
		title += fmt.Sprintf(" (horizon: %d days)", *s.Horizon)
	}
	return title
}

func points(rows []Observation, value func(Observation) *float64) []Point {
	var out []Point
	for _, o := range rows {
		if v := value(o); v != nil {
			out = append(out, Point{T: o.ChartTime, Y: *v})
		}
	}
	return out
}
