package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"

	"retail-insights/internal/errors"
	"retail-insights/internal/forecast"
	"retail-insights/internal/ingest"
	"retail-insights/internal/models"
	"retail-insights/internal/services"
)

const (
	uploadField     = "file"
	multipartMemory = 8 << 20
	analyzeTimeout  = 2 * time.Minute
)

var validate = validator.New()

// reports bundles what every handler group needs to find or build reports.
type reports struct {
	store          *services.Store
	analytics      *services.Analytics
	maxUploadBytes int64
	logger         *slog.Logger
}

// analyzeUpload reads the multipart "file" field, builds its report and
// stores it.
func (rs *reports) analyzeUpload(w http.ResponseWriter, r *http.Request) (*models.Report, error) {
	if rs.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rs.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, uploadError(err)
	}
	defer r.MultipartForm.RemoveAll()

	horizon, err := parseHorizon(r.FormValue("horizon"))
	if err != nil {
		return nil, err
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, errors.BadRequestWrap(err, "Missing upload field \"file\"")
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	report, err := rs.analytics.Analyze(ctx, header.Filename, file, horizon)
	if err != nil {
		return nil, uploadError(err)
	}

	rs.store.Put(report)
	return report, nil
}

// uploadError maps parse and upload failures to client-facing errors.
func uploadError(err error) *errors.AppError {
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooLarge):
		return errors.PayloadTooLarge(fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit))
	case stderrors.Is(err, http.ErrNotMultipart), stderrors.Is(err, http.ErrMissingBoundary):
		return errors.BadRequestWrap(err, "Upload must be multipart/form-data")
	case stderrors.Is(err, ingest.ErrUnsupportedFormat):
		return errors.UnsupportedMedia("Unsupported file format").WithDetails(err.Error())
	case stderrors.Is(err, ingest.ErrNoDateColumn),
		stderrors.Is(err, ingest.ErrNoSalesColumn),
		stderrors.Is(err, ingest.ErrNoValidRecords),
		stderrors.Is(err, ingest.ErrEmptyFile),
		stderrors.Is(err, ingest.ErrMalformedFile),
		stderrors.Is(err, ingest.ErrTooManyRows):
		return errors.UnprocessableWrap(err, "The file could not be analyzed").WithDetails(err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.ServiceUnavailable("Analysis timed out")
	default:
		return errors.InternalWrap(err, "Failed to analyze upload")
	}
}

// parseHorizon reads an optional forecast horizon. Empty means the
// configured default and is returned as 0.
func parseHorizon(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ValidationWrap(err, "horizon must be a whole number of months")
	}
	if err := validate.Var(n, fmt.Sprintf("min=1,max=%d", forecast.MaxHorizon)); err != nil {
		return 0, errors.ValidationWrap(err, fmt.Sprintf("horizon must be between 1 and %d", forecast.MaxHorizon))
	}
	return n, nil
}

func (rs *reports) lookup(r *http.Request) (*models.Report, error) {
	report, err := rs.store.Get(r.PathValue("id"))
	if stderrors.Is(err, services.ErrReportNotFound) {
		return nil, errors.NotFound("Report not found").WithDetails("id=" + r.PathValue("id"))
	}
	return report, err
}

// withForecast returns report itself when horizon matches its forecast, or
// a copy carrying a forecast refit for horizon.
func (rs *reports) withForecast(report *models.Report, horizon int) (*models.Report, error) {
	if horizon == 0 || (report.Forecast != nil && report.Forecast.Horizon == horizon) {
		return report, nil
	}
	fc, err := rs.analytics.Reforecast(report, horizon)
	if err != nil {
		return nil, errors.InternalWrap(err, "Failed to build forecast")
	}
	view := *report
	view.Forecast = fc
	return &view, nil
}

func renderHTML(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
