package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Save writes f to path, choosing CSV or XLSX from the extension.
func Save(f *Frame, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return SaveCSV(f, path)
	case ".xlsx":
		return SaveXLSX(f, path)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Load reads a frame from path, choosing CSV or XLSX from the extension.
func Load(path string) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// SaveCSV writes a header row followed by the data rows; no index column.
func SaveCSV(f *Frame, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteCSV streams f as CSV.
func WriteCSV(f *Frame, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.columns); err != nil {
		return err
	}
	if err := cw.WriteAll(f.rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// LoadCSV reads a CSV file whose first row holds the column names.
func LoadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCSV(file)
}

// ReadCSV parses CSV from r.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("read csv: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	f := New(trimBOM(header)...)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		f.Append(rec...)
	}
	return f, nil
}

// SaveXLSX writes f to the first sheet of a new workbook.
func SaveXLSX(f *Frame, path string) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)
	if err := writeSheetRow(book, sheet, 1, f.columns); err != nil {
		return err
	}
	for i, row := range f.rows {
		if err := writeSheetRow(book, sheet, i+2, row); err != nil {
			return err
		}
	}
	if err := book.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	return nil
}

func writeSheetRow(book *excelize.File, sheet string, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	return book.SetSheetRow(sheet, cell, &values)
}

// LoadXLSX reads the first sheet of a workbook; row one holds column names.
func LoadXLSX(path string) (*Frame, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer book.Close()

	rows, err := book.GetRows(book.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("read xlsx: missing header row")
	}
	f := New(rows[0]...)
	for _, row := range rows[1:] {
		f.Append(row...)
	}
	return f, nil
}

func trimBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header
}
