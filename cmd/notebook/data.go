package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/02loveslollipop/vitals-forecast-viewer/internal/db"
	"github.com/02loveslollipop/vitals-forecast-viewer/internal/frame"
	"github.com/02loveslollipop/vitals-forecast-viewer/internal/logging"
)

func (a *app) connect(ctx context.Context) (*db.Store, error) {
	store, err := db.Connect(ctx, a.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("db connection error: %w", err)
	}
	a.log.Debug().Str("dsn", a.cfg.DB.Redacted()).Msg("connected")
	return store, nil
}

// loadFrame reads the chart input from a file, or from the database when a
// query is given instead.
func (a *app) loadFrame(ctx context.Context, input, query string) (*frame.Frame, error) {
	switch {
	case input != "" && query != "":
		return nil, errors.New("use either --input or --query, not both")
	case input != "":
		return frame.Load(input)
	case query != "":
		store, err := a.connect(ctx)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.QueryFrame(ctx, query)
	default:
		return nil, errors.New("one of --input or --query is required")
	}
}

func newDBInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dbinfo",
		Short: "Connect to the research database and print DBMS details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			settings, err := store.ServerInfo(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range settings {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.Key, s.Value)
			}
			return nil
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	var sql, out string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a SQL query and save the result as an intermediate file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now()
			f, err := a.loadFrame(cmd.Context(), "", sql)
			if err != nil {
				return err
			}
			if out == "" {
				return frame.WriteCSV(f, cmd.OutOrStdout())
			}
			if err := frame.Save(f, out); err != nil {
				return err
			}
			a.log.Info().Int("rows", f.Len()).Str("file", out).Dur("took", time.Since(start)).Msg("saved query result")
			return nil
		},
	}
	cmd.Flags().StringVar(&sql, "sql", "", "SQL to run")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output .csv or .xlsx (default: CSV on stdout)")
	_ = cmd.MarkFlagRequired("sql")
	return cmd
}

func newConvertCmd(a *app) *cobra.Command {
	var input, out string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an intermediate file between CSV and XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(input); os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", input)
			}
			f, err := frame.Load(input)
			if err != nil {
				return err
			}
			if err := frame.Save(f, out); err != nil {
				return err
			}
			a.log.Info().Int("rows", f.Len()).Str("from", input).Str("to", out).Msg("converted")
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input .csv or .xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output .csv or .xlsx")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newStampCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stamp",
		Short: "Print a local-time progress marker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), logging.Stamp(time.Now().Local()))
			return err
		},
	}
}
