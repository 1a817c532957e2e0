package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-insights/internal/models"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, c.Render(context.Background(), &sb))
	return sb.String()
}

func testReport() *models.Report {
	return &models.Report{
		ID:       "r1",
		Filename: "<sales>.csv",
		Metrics: models.Metrics{
			TotalSales:    1500,
			TotalProfit:   300,
			AverageMargin: 0.2,
			Months:        2,
			ProfitAssumed: true,
		},
		Description: "Total sales are $1,500.00",
		Forecast: &models.Forecast{
			Model: "linear-trend",
			Future: []models.ForecastPoint{
				{Month: "2023-03", Predicted: 900, Lower: 800, Upper: 1000},
			},
		},
	}
}

func TestDashboard(t *testing.T) {
	html := render(t, Dashboard(DashboardData{
		Intro:          "Upload a file",
		Error:          "bad <file>",
		MaxUploadBytes: 32 << 20,
		Recent: []models.ReportSummary{
			{ID: "abc", Filename: "q1.csv", Months: 3, TotalSales: 1234.5, CreatedAt: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)},
		},
	}))

	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, `action="/reports"`)
	assert.Contains(t, html, `name="file"`)
	assert.Contains(t, html, "Upload a file")
	assert.Contains(t, html, "bad &lt;file&gt;")
	assert.Contains(t, html, "up to 32 MB")
	assert.Contains(t, html, `href="/reports/abc"`)
	assert.Contains(t, html, "$1,234.50")
	assert.Contains(t, html, "2024-01-02 03:04")
}

func TestDashboard_NoRecent(t *testing.T) {
	html := render(t, Dashboard(DashboardData{Intro: "x"}))
	assert.NotContains(t, html, "Recent reports")
	assert.NotContains(t, html, "upload-error")
}

func TestReportPage(t *testing.T) {
	html := render(t, ReportPage(testReport(), 6))

	assert.Contains(t, html, "&lt;sales&gt;.csv")
	assert.Contains(t, html, "/sse/reports/r1?horizon=6")
	assert.Contains(t, html, `id="salesChart"`)
	assert.Contains(t, html, `id="profitChart"`)
	assert.Contains(t, html, `id="progress"`)
	assert.Contains(t, html, "/api/reports/r1/export?format=xlsx")
	assert.Contains(t, html, `data-on-load="@get(&#34;/sse/reports/r1?horizon=6&#34;)"`)
}

func TestReportPage_EscapesFilename(t *testing.T) {
	r := testReport()
	r.ID = "it's"
	r.Filename = `<b>"q1" it's</b>.csv`
	html := render(t, ReportPage(r, 3))

	escaped := "&lt;b&gt;&#34;q1&#34; it&#39;s&lt;/b&gt;.csv"
	assert.Contains(t, html, "<title>"+escaped+" | Retail Insights</title>")
	assert.Contains(t, html, "<h1>"+escaped+"</h1>")
	assert.NotContains(t, html, `<b>"q1"`)

	// The stream URL stays one JSON string inside the attribute: the quote
	// is path-escaped and the attribute's own quotes are entity-encoded.
	assert.Contains(t, html, `data-on-load="@get(&#34;/sse/reports/it%27s?horizon=3&#34;)"`)
	assert.Contains(t, html, `href="/api/reports/it%27s/export?format=csv"`)
}

func TestStreamAction(t *testing.T) {
	got, err := streamAction(`a"b`, 4)
	require.NoError(t, err)
	assert.Equal(t, `@get("/sse/reports/a%22b?horizon=4")`, got)
}

func TestMetricsPanel(t *testing.T) {
	html := render(t, MetricsPanel(testReport()))

	assert.Contains(t, html, `id="metrics-panel"`)
	assert.Contains(t, html, "$1,500.00")
	assert.Contains(t, html, "$300.00")
	assert.Contains(t, html, "20.00%")
	assert.Contains(t, html, "assumed at 20% of sales")
}

func TestForecastTable(t *testing.T) {
	html := render(t, ForecastTable(testReport().Forecast))
	assert.Contains(t, html, "2023-03")
	assert.Contains(t, html, "$900.00")
	assert.Contains(t, html, "linear-trend")

	html = render(t, ForecastTable(&models.Forecast{Note: "need at least 2 months"}))
	assert.Contains(t, html, "Forecast unavailable: need at least 2 months")

	html = render(t, ForecastTable(nil))
	assert.Contains(t, html, "Forecast unavailable.")
}

func TestProgress(t *testing.T) {
	html := render(t, Progress(75, "Building forecast..."))
	assert.Contains(t, html, "width:75%")
	assert.Contains(t, html, "Building forecast...")

	assert.Contains(t, render(t, Progress(150, "")), "width:100%")
	assert.Contains(t, render(t, Progress(-5, "")), "width:0%")
}
