package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"retail-insights/internal/errors"
	"retail-insights/internal/models"
	"retail-insights/internal/services"
	"retail-insights/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	recentReports = 10
)

type PageHandlers struct {
	reports
}

func NewPageHandlers(store *services.Store, analytics *services.Analytics, maxUploadBytes int64, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		reports: reports{
			store:          store,
			analytics:      analytics,
			maxUploadBytes: maxUploadBytes,
			logger:         logger,
		},
	}
}

func (h *PageHandlers) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	html, err := renderHTML(ctx, c)
	if err != nil {
		h.logger.Error("render page", "error", err, "path", r.URL.Path)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write([]byte(html))
}

func (h *PageHandlers) dashboard(message string) templ.Component {
	list := h.store.List()
	if len(list) > recentReports {
		list = list[:recentReports]
	}
	recent := make([]models.ReportSummary, 0, len(list))
	for _, report := range list {
		recent = append(recent, report.Summary())
	}

	return templates.Dashboard(templates.DashboardData{
		Intro:          services.IntroDescription(),
		Error:          message,
		MaxUploadBytes: h.maxUploadBytes,
		Recent:         recent,
	})
}

func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.render(w, r, http.StatusNotFound, h.dashboard("Page not found"))
		return
	}
	h.render(w, r, http.StatusOK, h.dashboard(""))
}

// HandleUpload analyzes a form upload and redirects to its report page, or
// shows the upload page again with the error.
func (h *PageHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzeUpload(w, r)
	if err != nil {
		appErr, ok := err.(*errors.AppError)
		if !ok {
			appErr = uploadError(err)
		}
		h.logger.Warn("upload rejected",
			"error", err,
			"status", appErr.StatusCode,
		)

		message := appErr.Message
		if appErr.Details != "" {
			message += ": " + appErr.Details
		}
		h.render(w, r, appErr.StatusCode, h.dashboard(message))
		return
	}

	http.Redirect(w, r, "/reports/"+report.ID, http.StatusSeeOther)
}

func (h *PageHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.lookup(r)
	if err != nil {
		h.render(w, r, http.StatusNotFound, h.dashboard("Report not found or expired"))
		return
	}

	horizon, err := parseHorizon(r.URL.Query().Get("horizon"))
	if err != nil || horizon == 0 {
		horizon = h.analytics.Horizon()
		if report.Forecast != nil && report.Forecast.Horizon > 0 {
			horizon = report.Forecast.Horizon
		}
	}

	h.render(w, r, http.StatusOK, templates.ReportPage(report, horizon))
}
