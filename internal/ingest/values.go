package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"retail-insights/internal/models"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

var errBlank = errors.New("blank value")

func parseRecord(row []string, cols columns, parseDate func(string) (time.Time, error)) (models.Record, error) {
	date, err := parseDate(cell(row, cols.date))
	if err != nil {
		return models.Record{}, err
	}

	sales, err := parseAmount(cell(row, cols.sales))
	if err != nil {
		return models.Record{}, fmt.Errorf("sales: %w", err)
	}

	rec := models.Record{Date: date, Sales: sales}

	if cols.profit < 0 {
		rec.Profit = sales * DefaultMarginRate
		rec.ProfitAssumed = true
		return rec, nil
	}

	profit, err := parseAmount(cell(row, cols.profit))
	switch {
	case errors.Is(err, errBlank):
		rec.Profit = sales * DefaultMarginRate
		rec.ProfitAssumed = true
	case err != nil:
		return models.Record{}, fmt.Errorf("profit: %w", err)
	default:
		rec.Profit = profit
	}

	return rec, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errBlank
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", v)
}

// parseAmount accepts plain numbers plus the usual spreadsheet decorations:
// a currency sign, thousands separators and accounting-style parentheses.
func parseAmount(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, errBlank
	}

	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	if strings.HasPrefix(v, "-") {
		negative = !negative
		v = strings.TrimSpace(v[1:])
	}
	v = strings.TrimLeft(v, "$€£¥")
	v = strings.ReplaceAll(v, ",", "")
	v = strings.TrimSpace(v)

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", v)
	}
	if negative {
		f = -f
	}
	return f, nil
}
