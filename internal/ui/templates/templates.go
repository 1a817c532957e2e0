// Package templates holds the server-rendered pages and the fragments
// patched into them over SSE. Components live in the .templ files; run
// `templ generate` after editing them.
package templates

//go:generate templ generate

import (
	"fmt"
	"net/url"

	"github.com/a-h/templ"

	"retail-insights/internal/models"
)

// Element IDs patched by the report stream.
const (
	ProgressID = "progress"
	MetricsID  = "metrics-panel"
	ForecastID = "forecast-table"
)

// DashboardData is what the upload page shows.
type DashboardData struct {
	Intro          string
	Error          string
	MaxUploadBytes int64
	Recent         []models.ReportSummary
}

func uploadLimit(n int64) string {
	return fmt.Sprintf("%d MB", n>>20)
}

func reportURL(id string) templ.SafeURL {
	return templ.URL("/reports/" + url.PathEscape(id))
}

func exportURL(id, format string) templ.SafeURL {
	return templ.URL("/api/reports/" + url.PathEscape(id) + "/export?format=" + url.QueryEscape(format))
}

// streamAction is the datastar expression that opens the report stream.
// The URL is JSON-encoded so it stays a single JS string literal.
func streamAction(id string, horizon int) (string, error) {
	lit, err := templ.JSONString(fmt.Sprintf("/sse/reports/%s?horizon=%d", url.PathEscape(id), horizon))
	if err != nil {
		return "", err
	}
	return "@get(" + lit + ")", nil
}

func progressWidth(percent int) templ.SafeCSS {
	percent = max(0, min(percent, 100))
	return templ.SafeCSS(fmt.Sprintf("width:%d%%", percent))
}

func forecastUnavailable(f *models.Forecast) string {
	if f != nil && f.Note != "" {
		return "Forecast unavailable: " + f.Note
	}
	return "Forecast unavailable."
}
