package services

import "retail-insights/internal/models"

const (
	SalesChartID  = "salesChart"
	ProfitChartID = "profitChart"
)

var chartColors = []string{"#4F46E5", "#10B981", "#F59E0B", "#EF4444"}

// SalesChart plots actual monthly sales against the fitted and projected
// forecast.
func SalesChart(r *models.Report) models.ChartConfig {
	actual := models.ChartSeries{
		Name:   "Actual Sales",
		Mode:   "lines+markers",
		Color:  chartColors[0],
		Points: make([]models.ChartPoint, 0, len(r.Monthly)),
	}
	for _, p := range r.Monthly {
		actual.Points = append(actual.Points, models.ChartPoint{X: p.Month, Y: roundTo(p.Sales, 2)})
	}

	chart := models.ChartConfig{
		ID:     SalesChartID,
		Title:  "Interactive Sales Forecast",
		XAxis:  "Date",
		YAxis:  "Sales",
		Series: []models.ChartSeries{actual},
	}

	if r.Forecast == nil || len(r.Forecast.Future) == 0 {
		return chart
	}

	predicted := models.ChartSeries{
		Name:   "Forecasted Sales",
		Mode:   "lines",
		Color:  chartColors[1],
		Points: make([]models.ChartPoint, 0, len(r.Forecast.Fitted)+len(r.Forecast.Future)),
	}
	for _, points := range [][]models.ForecastPoint{r.Forecast.Fitted, r.Forecast.Future} {
		for _, p := range points {
			predicted.Points = append(predicted.Points, models.ChartPoint{X: p.Month, Y: roundTo(p.Predicted, 2)})
		}
	}
	chart.Series = append(chart.Series, predicted)

	return chart
}

// ProfitChart plots monthly profit and profit margin on one value axis.
func ProfitChart(r *models.Report) models.ChartConfig {
	profit := models.ChartSeries{Name: "Profit", Mode: "lines+markers", Color: chartColors[2]}
	margin := models.ChartSeries{Name: "Profit Margin", Mode: "lines+markers", Color: chartColors[3]}

	for _, p := range r.Monthly {
		profit.Points = append(profit.Points, models.ChartPoint{X: p.Month, Y: roundTo(p.Profit, 2)})
		margin.Points = append(margin.Points, models.ChartPoint{X: p.Month, Y: roundTo(p.Margin, 4)})
	}

	return models.ChartConfig{
		ID:     ProfitChartID,
		Title:  "Profit and Profit Margin Trends",
		XAxis:  "Date",
		YAxis:  "Value",
		Series: []models.ChartSeries{profit, margin},
	}
}
