// Package forecast selects the display window of one subject/metric series
// from a combined historical and forecast table, and describes the chart to
// draw for it.
package forecast

import (
	"errors"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// ErrNegativeHorizon is returned when a query carries a horizon below zero.
var ErrNegativeHorizon = errors.New("forecast horizon must be non-negative")

const day = 24 * time.Hour

// Coverage classifies which regimes a selected series contains.
type Coverage int

const (
	CoverageNeither Coverage = iota
	CoverageHistoryOnly
	CoverageForecastOnly
	CoverageBoth
)

func (c Coverage) String() string {
	switch c {
	case CoverageBoth:
		return "both"
	case CoverageHistoryOnly:
		return "history-only"
	case CoverageForecastOnly:
		return "forecast-only"
	default:
		return "neither"
	}
}

// Query identifies one logical series. HorizonDays is optional; nil shows
// every forecast row.
type Query struct {
	SubjectID   string
	Metric      string
	HorizonDays *int
}

// Days is a convenience for building Query.HorizonDays.
func Days(n int) *int {
	return &n
}

// Selection is a sorted, partitioned and possibly truncated series.
type Selection struct {
	SubjectID  string
	Metric     string
	Horizon    *int
	Coverage   Coverage
	Historical []Observation
	Forecast   []Observation
	// Boundary is the last historical timestamp, when history exists.
	Boundary *time.Time
	// Cutoff is the inclusive end of the horizon window, when one applied.
	Cutoff  *time.Time
	HasBand bool
}

// Selector applies the window rules and reports empty selections.
type Selector struct {
	log zerolog.Logger
}

// NewSelector returns a Selector that writes diagnostics to log.
func NewSelector(log zerolog.Logger) *Selector {
	return &Selector{log: log.With().Str("component", "forecast_selector").Logger()}
}

// Select picks the rows matching q from t. ok is false when nothing matched;
// that is logged and is not an error. t is never modified.
func (s *Selector) Select(t Table, q Query) (Selection, bool, error) {
	if q.HorizonDays != nil && *q.HorizonDays < 0 {
		return Selection{}, false, ErrNegativeHorizon
	}

	rows := make([]Observation, 0)
	for _, o := range t.Rows {
		if o.SubjectID == q.SubjectID && o.Metric == q.Metric {
			rows = append(rows, o)
		}
	}
	if len(rows) == 0 {
		s.log.Warn().
			Str("subject_id", q.SubjectID).
			Str("metric", q.Metric).
			Msg("no data for this selector")
		return Selection{}, false, nil
	}

	slices.SortStableFunc(rows, func(a, b Observation) int {
		return a.ChartTime.Compare(b.ChartTime)
	})

	sel := Selection{
		SubjectID: q.SubjectID,
		Metric:    q.Metric,
		Horizon:   q.HorizonDays,
	}
	for _, o := range rows {
		switch o.RowType {
		case Historical:
			sel.Historical = append(sel.Historical, o)
		case Predicted:
			sel.Forecast = append(sel.Forecast, o)
		}
	}

	sel.Coverage = coverageOf(sel.Historical, sel.Forecast)
	if n := len(sel.Historical); n > 0 {
		last := sel.Historical[n-1].ChartTime
		sel.Boundary = &last
	}

	if anchor, ok := anchorFor(sel); ok {
		cutoff := anchor.Add(time.Duration(*q.HorizonDays) * day)
		sel.Cutoff = &cutoff
		sel.Forecast = truncate(sel.Forecast, cutoff)
	}

	sel.HasBand = t.HasLower && t.HasUpper && hasBandValues(sel.Forecast)

	s.log.Debug().
		Str("subject_id", q.SubjectID).
		Str("metric", q.Metric).
		Str("coverage", sel.Coverage.String()).
		Int("historical", len(sel.Historical)).
		Int("forecast", len(sel.Forecast)).
		Msg("series selected")
	return sel, true, nil
}

func coverageOf(hist, fc []Observation) Coverage {
	switch {
	case len(hist) > 0 && len(fc) > 0:
		return CoverageBoth
	case len(hist) > 0:
		return CoverageHistoryOnly
	case len(fc) > 0:
		return CoverageForecastOnly
	default:
		return CoverageNeither
	}
}

// anchorFor returns the reference date of the horizon window. History, when
// present, anchors at its last timestamp; otherwise the first forecast row.
func anchorFor(sel Selection) (time.Time, bool) {
	if sel.Horizon == nil {
		return time.Time{}, false
	}
	switch sel.Coverage {
	case CoverageBoth, CoverageHistoryOnly:
		return *sel.Boundary, true
	case CoverageForecastOnly:
		return sel.Forecast[0].ChartTime, true
	default:
		return time.Time{}, false
	}
}

func truncate(rows []Observation, cutoff time.Time) []Observation {
	out := make([]Observation, 0, len(rows))
	for _, o := range rows {
		if !o.ChartTime.After(cutoff) {
			out = append(out, o)
		}
	}
	return out
}

func hasBandValues(rows []Observation) bool {
	for _, o := range rows {
		if o.ForecastLower != nil && o.ForecastUpper != nil {
			return true
		}
	}
	return false
}
