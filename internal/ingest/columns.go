package ingest

import (
	"strings"

	"retail-insights/internal/models"
)

type columns struct {
	date   int
	sales  int
	profit int // -1 when absent
	names  models.ColumnMap
}

func detectColumns(header []string) (columns, error) {
	cols := columns{date: -1, sales: -1, profit: -1}

	for i, h := range header {
		if strings.Contains(strings.ToLower(h), "date") {
			cols.date = i
			cols.names.Date = strings.TrimSpace(h)
			break
		}
	}
	if cols.date < 0 {
		return cols, ErrNoDateColumn
	}

	for i, h := range header {
		if i == cols.date {
			continue
		}
		name := strings.ToLower(h)
		if cols.sales < 0 && strings.Contains(name, "sales") {
			cols.sales = i
			cols.names.Sales = strings.TrimSpace(h)
		}
		if cols.profit < 0 && strings.Contains(name, "profit") {
			cols.profit = i
			cols.names.Profit = strings.TrimSpace(h)
		}
	}
	if cols.sales < 0 {
		return cols, ErrNoSalesColumn
	}

	return cols, nil
}
