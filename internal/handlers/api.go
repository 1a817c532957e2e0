package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"retail-insights/internal/errors"
	"retail-insights/internal/export"
	"retail-insights/internal/models"
	"retail-insights/internal/observability"
	"retail-insights/internal/services"
)

const version = "1.0.0"

type APIHandlers struct {
	reports
}

func NewAPIHandlers(store *services.Store, analytics *services.Analytics, maxUploadBytes int64, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		reports: reports{
			store:          store,
			analytics:      analytics,
			maxUploadBytes: maxUploadBytes,
			logger:         logger,
		},
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzeUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/reports/"+report.ID)
	errors.WriteSuccessStatus(w, http.StatusCreated, report)
}

func (h *APIHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	list := h.store.List()

	summaries := make([]models.ReportSummary, 0, len(list))
	for _, report := range list {
		summaries = append(summaries, report.Summary())
	}

	errors.WriteSuccessWithHeaders(w, summaries, map[string]string{
		"Cache-Control": "no-store",
	})
}

func (h *APIHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	report, err := h.lookup(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, report)
}

func (h *APIHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.PathValue("id")); err != nil {
		h.fail(w, r, errors.NotFound("Report not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	report, err := h.lookup(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, map[string]any{
		"metrics":     report.Metrics,
		"columns":     report.Columns,
		"description": report.Description,
	})
}

func (h *APIHandlers) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	report, err := h.lookup(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, report.Monthly)
}

func (h *APIHandlers) HandleForecast(w http.ResponseWriter, r *http.Request) {
	report, err := h.lookup(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	horizon, err := parseHorizon(r.URL.Query().Get("horizon"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.withForecast(report, horizon)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, view.Forecast)
}

func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	report, err := h.lookup(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	horizon, err := parseHorizon(r.URL.Query().Get("horizon"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if report, err = h.withForecast(report, horizon); err != nil {
		h.fail(w, r, err)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatCSV
	}
	contentType, ok := export.ContentType(format)
	if !ok {
		h.fail(w, r, errors.Validation(fmt.Sprintf("unknown export format %q, use csv or xlsx", format)))
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, report); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "Failed to export report"))
		return
	}

	name := strings.TrimSuffix(filepath.Base(report.Filename), filepath.Ext(report.Filename))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"_report."+format))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("export write failed", "error", err, "report_id", report.ID)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
		"reports":   h.store.Len(),
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()
	stats["forecast_horizon"] = h.analytics.Horizon()

	errors.WriteSuccess(w, stats)
}
