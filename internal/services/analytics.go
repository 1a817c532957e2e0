package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"retail-insights/internal/forecast"
	"retail-insights/internal/ingest"
	"retail-insights/internal/models"
	"retail-insights/internal/observability"
)

// ReportObserver receives one call per upload attempt.
type ReportObserver interface {
	ObserveReport(format string, err error, rowsRead, rowsSkipped int, d time.Duration)
}

type Analytics struct {
	parser   *ingest.Parser
	horizon  int
	logger   *slog.Logger
	observer ReportObserver
}

func NewAnalytics(parser *ingest.Parser, horizon int, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	if horizon <= 0 {
		horizon = forecast.DefaultHorizon
	}
	return &Analytics{
		parser:  parser,
		horizon: horizon,
		logger:  logger,
	}
}

func (a *Analytics) WithObserver(o ReportObserver) *Analytics {
	a.observer = o
	return a
}

func (a *Analytics) Horizon() int {
	return a.horizon
}

// Analyze parses an uploaded file and builds its report. A horizon of zero
// uses the configured default.
func (a *Analytics) Analyze(ctx context.Context, filename string, r io.Reader, horizon int) (*models.Report, error) {
	ctx, span := observability.StartSpan(ctx, "analyze upload")
	defer span.Finish()
	span.SetTag("filename", filename)

	start := time.Now()
	format, _ := ingest.DetectFormat(filename)

	ds, err := a.parser.Parse(ctx, filename, r)
	if err != nil {
		span.SetError(err)
		a.observe(format, err, nil, start)
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	report, err := a.BuildReport(ctx, ds, filename, horizon)
	a.observe(format, err, ds, start)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	a.logger.Info("report built",
		"filename", filename,
		"records", len(ds.Records),
		"skipped", ds.RowsSkipped,
		"months", len(report.Monthly),
		"duration", time.Since(start),
		"span", span,
	)
	return report, nil
}

func (a *Analytics) observe(format string, err error, ds *models.Dataset, start time.Time) {
	if a.observer == nil {
		return
	}
	if format == "" {
		format = "unknown"
	}
	read, skipped := 0, 0
	if ds != nil {
		read, skipped = ds.RowsRead, ds.RowsSkipped
	}
	a.observer.ObserveReport(format, err, read, skipped, time.Since(start))
}

// BuildReport aggregates ds by month, then computes metrics and the forecast
// concurrently.
func (a *Analytics) BuildReport(ctx context.Context, ds *models.Dataset, filename string, horizon int) (*models.Report, error) {
	if len(ds.Records) == 0 {
		return nil, ingest.ErrNoValidRecords
	}
	if horizon == 0 {
		horizon = a.horizon
	}

	monthly := Monthly(ds.Records)

	var (
		metrics models.Metrics
		fc      *models.Forecast
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		metrics = Summarize(ds.Records, monthly)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		var err error
		fc, err = BuildForecast(monthly, horizon)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &models.Report{
		Filename:    filename,
		Format:      ds.Format,
		CreatedAt:   time.Now().UTC(),
		Columns:     ds.Columns,
		Metrics:     metrics,
		Monthly:     monthly,
		Forecast:    fc,
		RowsRead:    ds.RowsRead,
		RowsSkipped: ds.RowsSkipped,
	}
	report.Description = Describe(report)

	return report, nil
}

// BuildForecast fits monthly sales and projects horizon months ahead. Too
// little history is not an error: the forecast comes back empty with a note.
func BuildForecast(monthly []models.MonthlyPoint, horizon int) (*models.Forecast, error) {
	model, err := forecast.Fit(monthly)
	if errors.Is(err, forecast.ErrInsufficientHistory) {
		return &models.Forecast{Horizon: horizon, Note: err.Error()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fit forecast: %w", err)
	}
	return model.Predict(horizon)
}

// Monthly groups records by calendar month. Months with no records between
// the first and last month are included with zero values.
func Monthly(records []models.Record) []models.MonthlyPoint {
	if len(records) == 0 {
		return []models.MonthlyPoint{}
	}

	type bucket struct {
		sales, profit float64
		count         int
	}
	groups := make(map[string]*bucket)

	first, last := monthStart(records[0].Date), monthStart(records[0].Date)
	for _, rec := range records {
		m := monthStart(rec.Date)
		if m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}

		key := m.Format("2006-01")
		if groups[key] == nil {
			groups[key] = &bucket{}
		}
		groups[key].sales += rec.Sales
		groups[key].profit += rec.Profit
		groups[key].count++
	}

	result := make([]models.MonthlyPoint, 0, len(groups))
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		point := models.MonthlyPoint{
			Month:     key,
			PeriodEnd: forecast.MonthEnd(m, 0),
		}
		if b := groups[key]; b != nil {
			point.Sales = b.sales
			point.Profit = b.profit
			point.Transactions = b.count
			point.Margin = margin(b.profit, b.sales)
		}
		result = append(result, point)
	}
	return result
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Summarize computes the headline figures. AverageMargin is total profit over
// total sales; MeanMonthlyMargin averages the margins of months with sales.
func Summarize(records []models.Record, monthly []models.MonthlyPoint) models.Metrics {
	var m models.Metrics
	for _, rec := range records {
		m.TotalSales += rec.Sales
		m.TotalProfit += rec.Profit
		if rec.ProfitAssumed {
			m.ProfitAssumed = true
		}
	}
	m.Records = len(records)
	m.Months = len(monthly)
	m.AverageMargin = margin(m.TotalProfit, m.TotalSales)

	var sum float64
	var n int
	for _, p := range monthly {
		if p.Sales != 0 {
			sum += p.Margin
			n++
		}
	}
	if n > 0 {
		m.MeanMonthlyMargin = sum / float64(n)
	}

	return m
}

func margin(profit, sales float64) float64 {
	if sales == 0 {
		return 0
	}
	return profit / sales
}

// Reforecast refits a stored report's monthly history for another horizon.
func (a *Analytics) Reforecast(report *models.Report, horizon int) (*models.Forecast, error) {
	if horizon == 0 {
		horizon = a.horizon
	}
	return BuildForecast(report.Monthly, horizon)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
