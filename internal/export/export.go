// Package export writes a report's monthly history and forecast as CSV or
// as an Excel workbook.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"retail-insights/internal/models"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	monthlySheet  = "Monthly"
	forecastSheet = "Forecast"
)

var csvHeader = []string{"month", "sales", "profit", "margin", "forecast", "lower", "upper"}

// ContentType returns the MIME type for format, or false when unsupported.
func ContentType(format string) (string, bool) {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8", true
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true
	default:
		return "", false
	}
}

func Write(w io.Writer, format string, r *models.Report) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatXLSX:
		return WriteXLSX(w, r)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteCSV emits one row per historical month followed by one per forecast
// month. Forecast-only rows leave the actual columns empty.
func WriteCSV(w io.Writer, r *models.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	fitted := make(map[string]models.ForecastPoint)
	var future []models.ForecastPoint
	if r.Forecast != nil {
		for _, p := range r.Forecast.Fitted {
			fitted[p.Month] = p
		}
		future = r.Forecast.Future
	}

	for _, m := range r.Monthly {
		row := []string{m.Month, num(m.Sales), num(m.Profit), strconv.FormatFloat(m.Margin, 'f', 4, 64), "", "", ""}
		if p, ok := fitted[m.Month]; ok {
			row[4], row[5], row[6] = num(p.Predicted), num(p.Lower), num(p.Upper)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	for _, p := range future {
		if err := cw.Write([]string{p.Month, "", "", "", num(p.Predicted), num(p.Lower), num(p.Upper)}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteXLSX writes a workbook with a Monthly sheet and a Forecast sheet.
func WriteXLSX(w io.Writer, r *models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), monthlySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, monthlySheet, 1, []any{"Month", "Sales", "Profit", "Margin", "Transactions"}); err != nil {
		return err
	}
	for i, m := range r.Monthly {
		if err := setRow(f, monthlySheet, i+2, []any{m.Month, m.Sales, m.Profit, m.Margin, m.Transactions}); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(forecastSheet); err != nil {
		return fmt.Errorf("add forecast sheet: %w", err)
	}
	if err := setRow(f, forecastSheet, 1, []any{"Month", "Predicted", "Lower", "Upper", "Historical"}); err != nil {
		return err
	}
	if r.Forecast != nil {
		row := 2
		for _, points := range [][]models.ForecastPoint{r.Forecast.Fitted, r.Forecast.Future} {
			for _, p := range points {
				if err := setRow(f, forecastSheet, row, []any{p.Month, p.Predicted, p.Lower, p.Upper, p.Historical}); err != nil {
					return err
				}
				row++
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
