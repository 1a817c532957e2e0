package models

import "time"

type ForecastPoint struct {
	Month      string    `json:"month"`
	PeriodEnd  time.Time `json:"period_end"`
	Predicted  float64   `json:"predicted"`
	Lower      float64   `json:"lower"`
	Upper      float64   `json:"upper"`
	Historical bool      `json:"historical"`
}

type Forecast struct {
	Horizon int             `json:"horizon"`
	Model   string          `json:"model"`
	Fitted  []ForecastPoint `json:"fitted"`
	Future  []ForecastPoint `json:"future"`
	Note    string          `json:"note,omitempty"`
}

type ChartPoint struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

type ChartSeries struct {
	Name   string       `json:"name"`
	Mode   string       `json:"mode"`
	Color  string       `json:"color"`
	Points []ChartPoint `json:"points"`
}

type ChartConfig struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	XAxis  string        `json:"x_axis"`
	YAxis  string        `json:"y_axis"`
	Series []ChartSeries `json:"series"`
}

type Report struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	Format      string         `json:"format"`
	CreatedAt   time.Time      `json:"created_at"`
	Columns     ColumnMap      `json:"columns"`
	Metrics     Metrics        `json:"metrics"`
	Monthly     []MonthlyPoint `json:"monthly"`
	Forecast    *Forecast      `json:"forecast,omitempty"`
	RowsRead    int            `json:"rows_read"`
	RowsSkipped int            `json:"rows_skipped"`
	Description string         `json:"description"`
}

// ReportSummary is the listing view of a Report.
type ReportSummary struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	CreatedAt  time.Time `json:"created_at"`
	TotalSales float64   `json:"total_sales"`
	Months     int       `json:"months"`
}

func (r *Report) Summary() ReportSummary {
	return ReportSummary{
		ID:         r.ID,
		Filename:   r.Filename,
		CreatedAt:  r.CreatedAt,
		TotalSales: r.Metrics.TotalSales,
		Months:     r.Metrics.Months,
	}
}
