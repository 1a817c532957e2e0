package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"retail-insights/internal/errors"
	"retail-insights/internal/models"
	"retail-insights/internal/observability"
	"retail-insights/internal/services"
	"retail-insights/internal/ui/templates"
)

type SSEHandlers struct {
	reports
}

func NewSSEHandlers(store *services.Store, analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		reports: reports{
			store:     store,
			analytics: analytics,
			logger:    logger,
		},
	}
}

type reportStream struct {
	sse *datastar.ServerSentEventGenerator
	r   *http.Request
}

func (s *reportStream) patch(c templ.Component) error {
	html, err := renderHTML(s.r.Context(), c)
	if err != nil {
		return err
	}
	return s.sse.PatchElements(html)
}

func (s *reportStream) progress(percent int, label string) error {
	return s.patch(templates.Progress(percent, label))
}

func (s *reportStream) chart(chart models.ChartConfig) error {
	signals, err := json.Marshal(map[string]any{chart.ID: chart})
	if err != nil {
		return err
	}
	return s.sse.PatchSignals(signals)
}

// HandleReport streams a stored report's sections to the report page in the
// order they used to be computed, with a progress bar between steps.
func (h *SSEHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.lookup(r)
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}
	horizon, err := parseHorizon(r.URL.Query().Get("horizon"))
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	stream := &reportStream{sse: datastar.NewSSE(w, r), r: r}

	steps := []func() error{
		func() error { return stream.progress(20, "Loading data...") },
		func() error { return stream.progress(50, "Calculating metrics...") },
		func() error { return stream.patch(templates.MetricsPanel(report)) },
		func() error { return stream.progress(75, "Building forecast...") },
		func() error {
			view, err := h.withForecast(report, horizon)
			if err != nil {
				return err
			}
			if err := stream.chart(services.SalesChart(view)); err != nil {
				return err
			}
			return stream.patch(templates.ForecastTable(view.Forecast))
		},
		func() error { return stream.progress(100, "Plotting profit trends...") },
		func() error { return stream.chart(services.ProfitChart(report)) },
		func() error { return stream.progress(100, "Completed!") },
	}

	for _, step := range steps {
		if r.Context().Err() != nil {
			h.logger.Debug("report stream closed by client", "report_id", report.ID)
			return
		}
		if err := step(); err != nil {
			h.logger.Error("report stream failed",
				"error", err,
				"report_id", report.ID,
				"request_id", observability.GetRequestID(r.Context()),
			)
			stream.progress(0, "Something went wrong while building the report.")
			return
		}
	}
}
