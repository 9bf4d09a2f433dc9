package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/vitals-forecast-viewer/internal/config"
	"github.com/02loveslollipop/vitals-forecast-viewer/internal/forecast"
	"github.com/02loveslollipop/vitals-forecast-viewer/internal/frame"
)

// Store wraps database access helpers.
type Store struct {
	pool          *pgxpool.Pool
	forecastTable pgx.Identifier
}

// Setting is one DBMS property reported by the server.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

const serverInfoSQL = `
    SELECT implementation_info_name AS key, character_value AS value
    FROM mimiciv.information_schema.sql_implementation_info
    WHERE implementation_info_name LIKE 'DBMS %'
`

// Connect opens a pool for cfg and probes the server before returning.
func Connect(ctx context.Context, cfg config.Database) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse connection config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Redacted(), err)
	}

	store := &Store{pool: pool, forecastTable: ParseIdentifier(cfg.ForecastTable)}

	probeCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if _, err := store.ServerInfo(probeCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("probe %s: %w", cfg.Redacted(), err)
	}
	return store, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ServerInfo returns the DBMS name and version rows.
func (s *Store) ServerInfo(ctx context.Context) ([]Setting, error) {
	rows, err := s.pool.Query(ctx, serverInfoSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make([]Setting, 0)
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, err
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

// ParseIdentifier splits a dotted "schema.table" name.
func ParseIdentifier(name string) pgx.Identifier {
	parts := strings.Split(strings.TrimSpace(name), ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			id = append(id, p)
		}
	}
	return id
}

// observationsSQL builds the per-series query; the table name is sanitized
// because it cannot be a bind parameter.
func observationsSQL(table pgx.Identifier) string {
	return `
    SELECT charttime, subject_id::text, metric, value, forecast, forecast_lower, forecast_upper, row_type
    FROM ` + table.Sanitize() + `
    WHERE subject_id::text = $1 AND metric = $2
    ORDER BY charttime
`
}

// FetchObservations loads one subject/metric series from the forecast table.
// Band columns are always present in the table, so the flags are set.
func (s *Store) FetchObservations(ctx context.Context, subjectID, metric string) (forecast.Table, error) {
	rows, err := s.pool.Query(ctx, observationsSQL(s.forecastTable), subjectID, metric)
	if err != nil {
		return forecast.Table{}, err
	}
	defer rows.Close()

	table := forecast.Table{
		Rows:        make([]forecast.Observation, 0),
		HasForecast: true,
		HasLower:    true,
		HasUpper:    true,
	}
	for rows.Next() {
		var o forecast.Observation
		var rowType string
		if err := rows.Scan(
			&o.ChartTime,
			&o.SubjectID,
			&o.Metric,
			&o.Value,
			&o.Forecast,
			&o.ForecastLower,
			&o.ForecastUpper,
			&rowType,
		); err != nil {
			return forecast.Table{}, err
		}
		o.RowType = forecast.RowType(strings.ToLower(rowType))
		table.Rows = append(table.Rows, o)
	}
	return table, rows.Err()
}

// Observations implements the HTTP series source.
func (s *Store) Observations(ctx context.Context, subjectID, metric string) (forecast.Table, error) {
	return s.FetchObservations(ctx, subjectID, metric)
}

// QueryFrame runs an arbitrary query and returns the result as a frame.
func (s *Store) QueryFrame(ctx context.Context, sql string, args ...any) (*frame.Frame, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, fd := range fields {
		cols[i] = fd.Name
	}
	f := frame.New(cols...)

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = FormatCell(v)
		}
		f.Append(cells...)
	}
	return f, rows.Err()
}

// FormatCell renders a decoded column value as a frame cell.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return frame.FormatTime(x)
	case float64:
		return frame.FormatFloat(x)
	case float32:
		return frame.FormatFloat(float64(x))
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
