package forecast

import (
	"fmt"
	"strings"
	"time"

	"github.com/02loveslollipop/vitals-forecast-viewer/internal/frame"
)

// RowType partitions a series into observed and predicted rows.
type RowType string

const (
	Historical RowType = "historical"
	Predicted  RowType = "forecast"
)

// Column names of the combined forecast table.
const (
	ColChartTime     = "charttime"
	ColSubjectID     = "subject_id"
	ColMetric        = "metric"
	ColForecast      = "forecast"
	ColForecastLower = "forecast_lower"
	ColForecastUpper = "forecast_upper"
	ColRowType       = "row_type"
)

// Observation is one row of the combined historical/forecast table. Value
// holds the column named after the row's metric.
type Observation struct {
	ChartTime     time.Time `json:"charttime"`
	SubjectID     string    `json:"subject_id"`
	Metric        string    `json:"metric"`
	Value         *float64  `json:"value,omitempty"`
	Forecast      *float64  `json:"forecast,omitempty"`
	ForecastLower *float64  `json:"forecast_lower,omitempty"`
	ForecastUpper *float64  `json:"forecast_upper,omitempty"`
	RowType       RowType   `json:"row_type"`
}

// Table is the full observation set across subjects and metrics, produced
// upstream by the forecasting process. The Has* flags record which optional
// columns the source carried at all.
type Table struct {
	Rows        []Observation
	HasForecast bool
	HasLower    bool
	HasUpper    bool
}

// FromFrame converts a frame carrying the combined table columns. Timestamps
// and numbers are parsed here; a malformed cell is returned as an error, as
// is a historical row whose metric has no value column.
func FromFrame(f *frame.Frame) (Table, error) {
	return fromFrame(f, func(string, string) bool { return true })
}

// FromFrameFor converts only the rows of one subject and metric. Cells of
// other series are never parsed, so they cannot fail the load.
func FromFrameFor(f *frame.Frame, subjectID, metric string) (Table, error) {
	return fromFrame(f, func(s, m string) bool { return s == subjectID && m == metric })
}

func fromFrame(f *frame.Frame, keep func(subjectID, metric string) bool) (Table, error) {
	for _, col := range []string{ColChartTime, ColSubjectID, ColMetric, ColRowType} {
		if !f.Has(col) {
			return Table{}, fmt.Errorf("%w: %s", frame.ErrUnknownColumn, col)
		}
	}

	t := Table{
		Rows:        make([]Observation, 0, f.Len()),
		HasForecast: f.Has(ColForecast),
		HasLower:    f.Has(ColForecastLower),
		HasUpper:    f.Has(ColForecastUpper),
	}
	for i := 0; i < f.Len(); i++ {
		o := Observation{
			SubjectID: strings.TrimSpace(f.Value(i, ColSubjectID)),
			Metric:    strings.TrimSpace(f.Value(i, ColMetric)),
			RowType:   RowType(strings.ToLower(strings.TrimSpace(f.Value(i, ColRowType)))),
		}
		if !keep(o.SubjectID, o.Metric) {
			continue
		}
		if o.RowType == Historical && !f.Has(o.Metric) {
			return Table{}, fmt.Errorf("row %d: %w: %s", i, frame.ErrUnknownColumn, o.Metric)
		}
		ts, err := frame.ParseTime(f.Value(i, ColChartTime))
		if err != nil {
			return Table{}, fmt.Errorf("row %d: %w", i, err)
		}
		o.ChartTime = ts
		fields := []struct {
			col string
			dst **float64
		}{
			{o.Metric, &o.Value},
			{ColForecast, &o.Forecast},
			{ColForecastLower, &o.ForecastLower},
			{ColForecastUpper, &o.ForecastUpper},
		}
		for _, fd := range fields {
			if fd.col == "" || !f.Has(fd.col) {
				continue
			}
			v, ok, err := frame.ParseFloat(f.Value(i, fd.col))
			if err != nil {
				return Table{}, fmt.Errorf("row %d column %s: %w", i, fd.col, err)
			}
			if ok {
				*fd.dst = &v
			}
		}
		t.Rows = append(t.Rows, o)
	}
	return t, nil
}

// Frame renders the table back into the combined column layout; one value
// column is emitted per metric present.
func (t Table) Frame() *frame.Frame {
	metrics := make([]string, 0)
	seen := map[string]bool{}
	for _, o := range t.Rows {
		if !seen[o.Metric] {
			seen[o.Metric] = true
			metrics = append(metrics, o.Metric)
		}
	}

	cols := []string{ColChartTime, ColSubjectID, ColMetric}
	cols = append(cols, metrics...)
	if t.HasForecast {
		cols = append(cols, ColForecast)
	}
	if t.HasLower {
		cols = append(cols, ColForecastLower)
	}
	if t.HasUpper {
		cols = append(cols, ColForecastUpper)
	}
	cols = append(cols, ColRowType)

	f := frame.New(cols...)
	for _, o := range t.Rows {
		cells := make(map[string]string, len(cols))
		cells[ColChartTime] = frame.FormatTime(o.ChartTime)
		cells[ColSubjectID] = o.SubjectID
		cells[ColMetric] = o.Metric
		cells[o.Metric] = formatPtr(o.Value)
		cells[ColForecast] = formatPtr(o.Forecast)
		cells[ColForecastLower] = formatPtr(o.ForecastLower)
		cells[ColForecastUpper] = formatPtr(o.ForecastUpper)
		cells[ColRowType] = string(o.RowType)

		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = cells[c]
		}
		f.Append(row...)
	}
	return f
}

func formatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return frame.FormatFloat(*v)
}
