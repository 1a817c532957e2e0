package services

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"retail-insights/internal/models"
)

var printer = message.NewPrinter(language.English)

// FormatMoney renders v as US dollars with thousands separators, e.g. $1,234.56.
func FormatMoney(v float64) string {
	if v < 0 {
		return "-" + printer.Sprintf("$%.2f", math.Abs(v))
	}
	return printer.Sprintf("$%.2f", v)
}

// FormatPercent renders a fraction as a percentage with two decimals.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

const introDescription = "This report provides an analysis of your retail business performance, " +
	"including key sales and profit metrics, sales forecasts, and profit trends. " +
	"Upload your retail data file in CSV or Excel format with date, sales, and profit columns " +
	"(profit is optional and assumed as 20% of sales if missing)."

// IntroDescription is shown before any file has been analysed.
func IntroDescription() string {
	return introDescription
}

func Describe(r *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "This report analyzes your retail business performance based on the uploaded data. "+
		"The total sales amount to %s, with a total profit of %s, resulting in an average profit margin of %s. ",
		FormatMoney(r.Metrics.TotalSales),
		FormatMoney(r.Metrics.TotalProfit),
		FormatPercent(r.Metrics.AverageMargin),
	)

	if r.Forecast != nil && len(r.Forecast.Future) > 0 {
		fmt.Fprintf(&b, "The sales forecast graph predicts future sales trends for the next %d %s, ",
			r.Forecast.Horizon, plural(r.Forecast.Horizon, "month", "months"))
	} else {
		b.WriteString("There is not enough monthly history for a sales forecast, ")
	}
	b.WriteString("while the profit trends graph shows historical profit and profit margin changes over time.")

	if r.Metrics.ProfitAssumed {
		b.WriteString(" Where profit was missing it was assumed to be 20% of sales.")
	}
	if r.RowsSkipped > 0 {
		fmt.Fprintf(&b, " %d %s with an unreadable date or amount %s skipped.",
			r.RowsSkipped, plural(r.RowsSkipped, "row", "rows"), plural(r.RowsSkipped, "was", "were"))
	}

	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
