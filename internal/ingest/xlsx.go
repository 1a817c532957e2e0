package ingest

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// xlsxSource streams one worksheet row by row, so the row cap in Parse stops
// reading long before a large sheet is materialized.
type xlsxSource struct {
	file     *excelize.File
	rows     *excelize.Rows
	sheet    string
	header   []string
	date1904 bool
}

// newXLSXSource opens the workbook and picks the first sheet whose header row
// names both a date and a sales column, falling back to the first sheet that
// has any rows at all. Only header rows are read while choosing.
func newXLSXSource(r io.Reader, maxUnzip int64) (*xlsxSource, error) {
	f, err := excelize.OpenReader(r, excelize.Options{UnzipSizeLimit: maxUnzip})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}

	var date1904 bool
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	var fallback *xlsxSource
	for _, name := range f.GetSheetList() {
		rows, header, err := openSheet(f, name)
		if err != nil || rows == nil {
			continue
		}

		candidate := &xlsxSource{file: f, rows: rows, sheet: name, header: header, date1904: date1904}
		if _, err := detectColumns(header); err == nil {
			if fallback != nil {
				fallback.rows.Close()
			}
			return candidate, nil
		}
		if fallback == nil {
			fallback = candidate
		} else {
			rows.Close()
		}
	}

	if fallback == nil {
		f.Close()
		return nil, ErrEmptyFile
	}
	return fallback, nil
}

// openSheet positions an iterator just past the sheet's first non-blank row
// and returns that row as the header. A sheet with no such row yields nil rows.
func openSheet(f *excelize.File, name string) (*excelize.Rows, []string, error) {
	rows, err := f.Rows(name)
	if err != nil {
		return nil, nil, err
	}
	for rows.Next() {
		row, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			rows.Close()
			return nil, nil, err
		}
		if !isBlankRow(row) {
			return rows, row, nil
		}
	}
	err = rows.Error()
	rows.Close()
	return nil, nil, err
}

func (s *xlsxSource) Header() []string { return s.header }

func (s *xlsxSource) Next() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrMalformedFile, s.sheet, err)
		}
		return nil, io.EOF
	}
	row, err := s.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrMalformedFile, s.sheet, err)
	}
	return row, nil
}

// ParseDate accepts text dates and Excel serial day numbers.
func (s *xlsxSource) ParseDate(v string) (time.Time, error) {
	t, err := parseDate(v)
	if err == nil {
		return t, nil
	}

	serial, convErr := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if convErr != nil || serial <= 0 {
		return time.Time{}, err
	}
	return excelize.ExcelDateToTime(serial, s.date1904)
}

func (s *xlsxSource) Close() error {
	return errors.Join(s.rows.Close(), s.file.Close())
}
