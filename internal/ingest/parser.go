// Package ingest turns an uploaded CSV or Excel workbook into a Dataset of
// dated sales records.
//
// Columns are found by header name: the first header containing "date", then
// the first remaining header containing "sales", then "profit". A missing or
// blank profit is assumed to be DefaultMarginRate of sales. Rows with an
// unparseable date or amount are dropped and counted in Dataset.RowsSkipped.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"retail-insights/internal/models"
)

const (
	// DefaultMarginRate is the profit assumed per row when none is given.
	DefaultMarginRate = 0.2

	batchSize  = 10000
	maxWorkers = 10
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMalformedFile     = errors.New("malformed file")
	ErrEmptyFile         = errors.New("file has no header row")
	ErrNoDateColumn      = errors.New("no date column found in the data")
	ErrNoSalesColumn     = errors.New("no sales column found in the data")
	ErrNoValidRecords    = errors.New("no valid records found")
	ErrTooManyRows       = errors.New("too many rows")
)

type Options struct {
	// MaxRows caps the number of data rows; zero means unlimited.
	MaxRows int
	// MaxUnzipBytes caps how much a workbook may inflate to; zero keeps
	// excelize's default.
	MaxUnzipBytes int64
}

type Parser struct {
	opts   Options
	logger *slog.Logger
}

func NewParser(opts Options, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{opts: opts, logger: logger}
}

// DetectFormat maps a filename to a supported format by extension.
func DetectFormat(filename string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return "", fmt.Errorf("%w: legacy .xls workbooks are not supported, save as .xlsx", ErrUnsupportedFormat)
	default:
		return "", fmt.Errorf("%w: %q, upload a CSV or Excel file", ErrUnsupportedFormat, ext)
	}
}

func (p *Parser) Parse(ctx context.Context, filename string, r io.Reader) (*models.Dataset, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	var src rowSource
	switch format {
	case FormatCSV:
		src, err = newCSVSource(r)
	case FormatXLSX:
		src, err = newXLSXSource(r, p.opts.MaxUnzipBytes)
	}
	if err != nil {
		return nil, err
	}
	defer src.Close()

	cols, err := detectColumns(src.Header())
	if err != nil {
		return nil, err
	}

	ds := &models.Dataset{
		Source:  filename,
		Format:  format,
		Columns: cols.names,
	}

	batch := make([][]string, 0, batchSize)
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlankRow(row) {
			continue
		}

		ds.RowsRead++
		if p.opts.MaxRows > 0 && ds.RowsRead > p.opts.MaxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, p.opts.MaxRows)
		}

		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := p.processBatch(ctx, batch, cols, src, ds); err != nil {
				return nil, err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := p.processBatch(ctx, batch, cols, src, ds); err != nil {
			return nil, err
		}
	}

	if len(ds.Records) == 0 {
		return nil, ErrNoValidRecords
	}

	if ds.RowsSkipped > 0 {
		p.logger.Info("skipped unparseable rows",
			"source", filename,
			"skipped", ds.RowsSkipped,
			"read", ds.RowsRead,
		)
	}

	return ds, nil
}

// processBatch parses rows on a bounded worker pool. Each worker owns a
// contiguous chunk so records keep file order.
func (p *Parser) processBatch(ctx context.Context, batch [][]string, cols columns, src rowSource, ds *models.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	type parsedRow struct {
		rec   models.Record
		valid bool
	}
	parsed := make([]parsedRow, len(batch))

	chunk := (len(batch) + maxWorkers - 1) / maxWorkers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for start := 0; start < len(batch); start += chunk {
		end := min(start+chunk, len(batch))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec, err := parseRecord(batch[i], cols, src.ParseDate)
				parsed[i] = parsedRow{rec: rec, valid: err == nil}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, pr := range parsed {
		if !pr.valid {
			ds.RowsSkipped++
			continue
		}
		ds.Records = append(ds.Records, pr.rec)
	}
	return nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// rowSource yields a header and then data rows until io.EOF.
type rowSource interface {
	Header() []string
	Next() ([]string, error)
	ParseDate(string) (time.Time, error)
	Close() error
}

type csvSource struct {
	reader *csv.Reader
	header []string
}

func newCSVSource(r io.Reader) (*csvSource, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	return &csvSource{reader: reader, header: header}, nil
}

func (s *csvSource) Header() []string { return s.header }

func (s *csvSource) Next() ([]string, error) {
	row, err := s.reader.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	return row, err
}

func (s *csvSource) ParseDate(v string) (time.Time, error) {
	return parseDate(v)
}

func (s *csvSource) Close() error { return nil }
