package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/vitals-forecast-viewer/internal/forecast"
	"github.com/02loveslollipop/vitals-forecast-viewer/internal/frame"
)

const combinedCSV = `charttime,subject_id,metric,hr,forecast,forecast_lower,forecast_upper,row_type
2024-01-03,10001,hr,71,,,,historical
2024-01-01,10001,hr,70,,,,historical
2024-01-02,10001,hr,72,,,,historical
2024-01-04,10001,hr,73,,,,historical
2024-01-05,10001,hr,74,,,,historical
2024-01-06,10001,hr,,75,73,77,forecast
2024-01-07,10001,hr,,76,74,78,forecast
2024-01-08,10001,hr,,77,75,79,forecast
2024-01-09,10001,hr,,78,76,80,forecast
2024-01-10,10001,hr,,79,77,81,forecast
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("CHART_WIDTH", "400")
	t.Setenv("CHART_HEIGHT", "300")
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestForecastCommandWritesPNG(t *testing.T) {
	input := writeFile(t, "combined.csv", combinedCSV)
	out := filepath.Join(t.TempDir(), "hr.png")

	_, _, err := execute(t, "forecast", "--input", input, "--subject", "10001", "--metric", "hr", "--horizon", "2", "--out", out)
	require.NoError(t, err)

	file, err := os.Open(out)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
}

func TestForecastCommandJSON(t *testing.T) {
	input := writeFile(t, "combined.csv", combinedCSV)

	stdout, _, err := execute(t, "forecast", "--input", input, "--subject", "10001", "--metric", "hr", "--horizon", "2", "--json")
	require.NoError(t, err)

	var p forecast.Plot
	require.NoError(t, json.Unmarshal([]byte(stdout), &p))
	require.NotNil(t, p.Historical)
	require.NotNil(t, p.Forecast)
	assert.Len(t, p.Historical.Points, 5)
	assert.Len(t, p.Forecast.Points, 2)
	assert.Equal(t, 70.0, p.Historical.Points[0].Y)
}

func TestForecastCommandNoData(t *testing.T) {
	input := writeFile(t, "combined.csv", combinedCSV)
	out := filepath.Join(t.TempDir(), "none.png")

	_, stderr, err := execute(t, "forecast", "--input", input, "--subject", "424242", "--metric", "hr", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "no data for this selector")
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestForecastCommandNoDataAtErrorLevel(t *testing.T) {
	input := writeFile(t, "combined.csv", combinedCSV)
	t.Setenv("LOG_LEVEL", "error")

	_, stderr, err := execute(t, "forecast", "--input", input, "--subject", "424242", "--metric", "hr", "--json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "no data for this selector: subject 424242 metric hr")
}

func TestForecastCommandMissingValueColumn(t *testing.T) {
	input := writeFile(t, "combined.csv", strings.Join([]string{
		"charttime,subject_id,metric,forecast,row_type",
		"2024-01-01,10001,hr,,historical",
		"2024-01-02,10001,hr,75,forecast",
	}, "\n"))
	out := filepath.Join(t.TempDir(), "hr.png")

	_, _, err := execute(t, "forecast", "--input", input, "--subject", "10001", "--metric", "hr", "--out", out)
	require.Error(t, err)
	assert.ErrorIs(t, err, frame.ErrUnknownColumn)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestForecastCommandIgnoresOtherSeries(t *testing.T) {
	input := writeFile(t, "combined.csv", combinedCSV+"2024-01-01,20002,hr,n/a?,,,,historical\n")

	stdout, _, err := execute(t, "forecast", "--input", input, "--subject", "10001", "--metric", "hr", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Subject 10001 - hr forecast")
}

func TestForecastCommandNeedsSource(t *testing.T) {
	_, _, err := execute(t, "forecast", "--subject", "1", "--metric", "hr")
	require.Error(t, err)
}

func TestChartCommands(t *testing.T) {
	input := writeFile(t, "vitals.csv", strings.Join([]string{
		"age,hr,sbp",
		"50,70,120",
		"60,75,125",
		"70,80,131",
		"80,,140",
		"55,72,118",
	}, "\n"))
	dir := t.TempDir()

	cases := [][]string{
		{"hist", "--input", input, "--column", "hr", "--bins", "5", "--out", filepath.Join(dir, "hist.png")},
		{"scatter", "--input", input, "--x", "age", "--y", "hr", "--out", filepath.Join(dir, "scatter.png")},
		{"line", "--input", input, "--x", "age", "--y", "sbp", "--out", filepath.Join(dir, "line.png")},
		{"corr", "--input", input, "--out", filepath.Join(dir, "corr.png")},
	}
	for _, args := range cases {
		_, _, err := execute(t, args...)
		require.NoError(t, err, args[0])
		_, err = os.Stat(args[len(args)-1])
		require.NoError(t, err, args[0])
	}
}

func TestConvertRoundTrip(t *testing.T) {
	input := writeFile(t, "combined.csv", combinedCSV)
	xlsx := filepath.Join(t.TempDir(), "combined.xlsx")

	_, _, err := execute(t, "convert", "--input", input, "--out", xlsx)
	require.NoError(t, err)

	stdout, _, err := execute(t, "forecast", "--input", xlsx, "--subject", "10001", "--metric", "hr", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Subject 10001 - hr forecast")
}

func TestStampCommand(t *testing.T) {
	stdout, _, err := execute(t, "stamp")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "@"))
}
