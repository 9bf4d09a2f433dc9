package forecast

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/vitals-forecast-viewer/internal/frame"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dayN(n int) time.Time {
	return base.AddDate(0, 0, n-1)
}

func f64(v float64) *float64 {
	return &v
}

func hist(subject, metric string, d int, v float64) Observation {
	return Observation{ChartTime: dayN(d), SubjectID: subject, Metric: metric, Value: f64(v), RowType: Historical}
}

func pred(subject, metric string, d int, v float64) Observation {
	return Observation{
		ChartTime:     dayN(d),
		SubjectID:     subject,
		Metric:        metric,
		Forecast:      f64(v),
		ForecastLower: f64(v - 2),
		ForecastUpper: f64(v + 2),
		RowType:       Predicted,
	}
}

// scenarioTable has history on days 1-5 and forecasts on days 6-10, stored
// out of order.
func scenarioTable() Table {
	t := Table{HasForecast: true, HasLower: true, HasUpper: true}
	fc := []float64{75, 76, 77, 78, 79}
	for i := 4; i >= 0; i-- {
		t.Rows = append(t.Rows, pred("10001", "hr", 6+i, fc[i]))
	}
	hr := []float64{70, 72, 71, 73, 74}
	for i, v := range hr {
		t.Rows = append(t.Rows, hist("10001", "hr", 1+i, v))
	}
	t.Rows = append(t.Rows, hist("10002", "hr", 1, 90), hist("10001", "sbp", 1, 120))
	return t
}

func newTestSelector(buf io.Writer) *Selector {
	return NewSelector(zerolog.New(buf).Level(zerolog.DebugLevel))
}

func days(rows []Observation) []int {
	out := make([]int, len(rows))
	for i, o := range rows {
		out[i] = int(o.ChartTime.Sub(base)/day) + 1
	}
	return out
}

func TestSelectHistoryAnchoredHorizon(t *testing.T) {
	sel, ok, err := newTestSelector(io.Discard).Select(scenarioTable(), Query{SubjectID: "10001", Metric: "hr", HorizonDays: Days(2)})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, CoverageBoth, sel.Coverage)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, days(sel.Historical))
	assert.Equal(t, []int{6, 7}, days(sel.Forecast))
	require.NotNil(t, sel.Boundary)
	assert.Equal(t, dayN(5), *sel.Boundary)
	require.NotNil(t, sel.Cutoff)
	assert.Equal(t, dayN(7), *sel.Cutoff)
	assert.True(t, sel.HasBand)
}

func TestSelectForecastAnchoredHorizon(t *testing.T) {
	table := Table{HasForecast: true}
	for d := 10; d >= 1; d-- {
		table.Rows = append(table.Rows, Observation{ChartTime: dayN(d), SubjectID: "7", Metric: "spo2", Forecast: f64(95), RowType: Predicted})
	}

	sel, ok, err := newTestSelector(io.Discard).Select(table, Query{SubjectID: "7", Metric: "spo2", HorizonDays: Days(3)})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, CoverageForecastOnly, sel.Coverage)
	assert.Empty(t, sel.Historical)
	assert.Nil(t, sel.Boundary)
	assert.Equal(t, []int{1, 2, 3, 4}, days(sel.Forecast))
	assert.False(t, sel.HasBand)
}

func TestSelectWithoutHorizonKeepsAllForecasts(t *testing.T) {
	sel, ok, err := newTestSelector(io.Discard).Select(scenarioTable(), Query{SubjectID: "10001", Metric: "hr"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{6, 7, 8, 9, 10}, days(sel.Forecast))
	assert.Nil(t, sel.Cutoff)
}

func TestSelectZeroHorizonAnchorsOnBoundary(t *testing.T) {
	table := scenarioTable()
	// A forecast row sharing the boundary timestamp is kept.
	table.Rows = append(table.Rows, pred("10001", "hr", 5, 74))

	sel, ok, err := newTestSelector(io.Discard).Select(table, Query{SubjectID: "10001", Metric: "hr", HorizonDays: Days(0)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{5}, days(sel.Forecast))
}

func TestSelectHistoryOnly(t *testing.T) {
	table := Table{Rows: []Observation{hist("1", "hr", 2, 60), hist("1", "hr", 1, 61)}}
	sel, ok, err := newTestSelector(io.Discard).Select(table, Query{SubjectID: "1", Metric: "hr", HorizonDays: Days(4)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, CoverageHistoryOnly, sel.Coverage)
	assert.Equal(t, []int{1, 2}, days(sel.Historical))
	assert.Empty(t, sel.Forecast)
	require.NotNil(t, sel.Cutoff)
	assert.Equal(t, dayN(6), *sel.Cutoff)
}

func TestSelectNoMatchLogsDiagnostic(t *testing.T) {
	var buf bytes.Buffer
	sel, ok, err := newTestSelector(&buf).Select(scenarioTable(), Query{SubjectID: "99999", Metric: "hr", HorizonDays: Days(2)})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, sel.Historical)
	assert.Contains(t, buf.String(), "no data for this selector")
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "99999")
}

func TestSelectMatchesMetricExactly(t *testing.T) {
	_, ok, err := newTestSelector(io.Discard).Select(scenarioTable(), Query{SubjectID: "10001", Metric: "HR"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectRejectsNegativeHorizon(t *testing.T) {
	_, ok, err := newTestSelector(io.Discard).Select(scenarioTable(), Query{SubjectID: "10001", Metric: "hr", HorizonDays: Days(-1)})
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrNegativeHorizon))
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	table := scenarioTable()
	before := append([]Observation(nil), table.Rows...)

	_, _, err := newTestSelector(io.Discard).Select(table, Query{SubjectID: "10001", Metric: "hr", HorizonDays: Days(1)})
	require.NoError(t, err)
	assert.Equal(t, before, table.Rows)
}

func TestSelectIsIdempotent(t *testing.T) {
	s := newTestSelector(io.Discard)
	q := Query{SubjectID: "10001", Metric: "hr"}
	first, _, err := s.Select(scenarioTable(), q)
	require.NoError(t, err)

	again := Table{HasForecast: true, HasLower: true, HasUpper: true}
	again.Rows = append(append(again.Rows, first.Historical...), first.Forecast...)
	second, _, err := s.Select(again, q)
	require.NoError(t, err)

	assert.Equal(t, first.Historical, second.Historical)
	assert.Equal(t, first.Forecast, second.Forecast)
}

func TestTruncatedRowsRespectCutoff(t *testing.T) {
	s := newTestSelector(io.Discard)
	for h := 0; h <= 12; h++ {
		sel, ok, err := s.Select(scenarioTable(), Query{SubjectID: "10001", Metric: "hr", HorizonDays: Days(h)})
		require.NoError(t, err)
		require.True(t, ok)
		limit := dayN(5).Add(time.Duration(h) * day)
		for _, o := range sel.Forecast {
			assert.False(t, o.ChartTime.After(limit), "horizon %d kept %s", h, o.ChartTime)
		}
	}
}

func TestSelectStableOnTies(t *testing.T) {
	a := hist("1", "hr", 1, 60)
	b := hist("1", "hr", 1, 61)
	sel, _, err := newTestSelector(io.Discard).Select(Table{Rows: []Observation{a, b}}, Query{SubjectID: "1", Metric: "hr"})
	require.NoError(t, err)
	require.Len(t, sel.Historical, 2)
	assert.Equal(t, 60.0, *sel.Historical[0].Value)
	assert.Equal(t, 61.0, *sel.Historical[1].Value)
}

func TestCoverageString(t *testing.T) {
	assert.Equal(t, "both", CoverageBoth.String())
	assert.Equal(t, "history-only", CoverageHistoryOnly.String())
	assert.Equal(t, "forecast-only", CoverageForecastOnly.String())
	assert.Equal(t, "neither", CoverageNeither.String())
}

func TestFromFrame(t *testing.T) {
	csv := strings.Join([]string{
		"charttime,subject_id,metric,hr,forecast,forecast_lower,forecast_upper,row_type",
		"2024-01-01,10001,hr,70,,,,historical",
		"2024-01-02,10001,hr,,75,73,77,forecast",
	}, "\n")
	f, err := frame.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	table, err := FromFrame(f)
	require.NoError(t, err)
	assert.True(t, table.HasForecast)
	assert.True(t, table.HasLower)
	assert.True(t, table.HasUpper)
	require.Len(t, table.Rows, 2)

	h := table.Rows[0]
	assert.Equal(t, Historical, h.RowType)
	require.NotNil(t, h.Value)
	assert.Equal(t, 70.0, *h.Value)
	assert.Nil(t, h.Forecast)

	p := table.Rows[1]
	assert.Equal(t, Predicted, p.RowType)
	assert.Nil(t, p.Value)
	assert.Equal(t, 77.0, *p.ForecastUpper)
}

func TestFromFrameWithoutBandColumns(t *testing.T) {
	f := frame.New("charttime", "subject_id", "metric", "hr", "forecast", "row_type")
	f.Append("2024-01-01", "1", "hr", "70", "", "historical")
	table, err := FromFrame(f)
	require.NoError(t, err)
	assert.False(t, table.HasLower)
	assert.False(t, table.HasUpper)
}

func TestFromFrameErrors(t *testing.T) {
	_, err := FromFrame(frame.New("charttime", "subject_id"))
	assert.True(t, errors.Is(err, frame.ErrUnknownColumn))

	f := frame.New("charttime", "subject_id", "metric", "hr", "row_type")
	f.Append("yesterday", "1", "hr", "70", "historical")
	_, err = FromFrame(f)
	require.Error(t, err)

	f = frame.New("charttime", "subject_id", "metric", "hr", "row_type")
	f.Append("2024-01-01", "1", "hr", "seventy", "historical")
	_, err = FromFrame(f)
	require.Error(t, err)
}

func TestFromFrameRequiresValueColumn(t *testing.T) {
	f := frame.New("charttime", "subject_id", "metric", "forecast", "row_type")
	f.Append("2024-01-01", "1", "hr", "", "historical")
	f.Append("2024-01-02", "1", "hr", "75", "forecast")

	_, err := FromFrame(f)
	require.Error(t, err)
	assert.True(t, errors.Is(err, frame.ErrUnknownColumn))
	assert.Contains(t, err.Error(), "hr")

	_, err = FromFrameFor(f, "1", "hr")
	assert.True(t, errors.Is(err, frame.ErrUnknownColumn))
}

func TestFromFrameForecastRowsNeedNoValueColumn(t *testing.T) {
	f := frame.New("charttime", "subject_id", "metric", "forecast", "row_type")
	f.Append("2024-01-02", "1", "hr", "75", "forecast")

	table, err := FromFrame(f)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, 75.0, *table.Rows[0].Forecast)
}

func TestFromFrameForSkipsOtherSeries(t *testing.T) {
	f := frame.New("charttime", "subject_id", "metric", "hr", "note", "row_type")
	f.Append("2024-01-01", "1", "hr", "70", "", "historical")
	f.Append("2024-01-02", "1", "hr", "71", "", "historical")
	f.Append("not a date", "2", "note", "", "see chart", "historical")

	_, err := FromFrame(f)
	require.Error(t, err)

	table, err := FromFrameFor(f, "1", "hr")
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 71.0, *table.Rows[1].Value)

	table, err = FromFrameFor(f, "3", "hr")
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestTableFrameRoundTrip(t *testing.T) {
	table := scenarioTable()
	back, err := FromFrame(table.Frame())
	require.NoError(t, err)
	require.Len(t, back.Rows, len(table.Rows))
	assert.Equal(t, table.HasLower, back.HasLower)

	sel, ok, err := newTestSelector(io.Discard).Select(back, Query{SubjectID: "10001", Metric: "hr", HorizonDays: Days(2)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{6, 7}, days(sel.Forecast))
}
