package models

import "time"

type Record struct {
	Date          time.Time
	Sales         float64
	Profit        float64
	ProfitAssumed bool
}

type ColumnMap struct {
	Date   string `json:"date"`
	Sales  string `json:"sales"`
	Profit string `json:"profit,omitempty"`
}

type Dataset struct {
	Source      string
	Format      string
	Columns     ColumnMap
	Records     []Record
	RowsRead    int
	RowsSkipped int
}

type MonthlyPoint struct {
	Month        string    `json:"month"`
	PeriodEnd    time.Time `json:"period_end"`
	Sales        float64   `json:"sales"`
	Profit       float64   `json:"profit"`
	Margin       float64   `json:"margin"`
	Transactions int       `json:"transactions"`
}

type Metrics struct {
	TotalSales        float64 `json:"total_sales"`
	TotalProfit       float64 `json:"total_profit"`
	AverageMargin     float64 `json:"average_margin"`
	MeanMonthlyMargin float64 `json:"mean_monthly_margin"`
	Months            int     `json:"months"`
	Records           int     `json:"records"`
	ProfitAssumed     bool    `json:"profit_assumed"`
}
