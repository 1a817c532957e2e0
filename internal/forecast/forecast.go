// Package forecast projects monthly sales forward with a least-squares linear
// trend, plus a month-of-year seasonal term once two full years of history
// are available.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"retail-insights/internal/models"
)

const (
	DefaultHorizon = 3
	MaxHorizon     = 24

	// minSeasonalMonths is two full yearly cycles.
	minSeasonalMonths = 24
	// z80 is the two-sided 80% normal quantile.
	z80 = 1.2815515655446004

	modelTrend         = "linear-trend"
	modelTrendSeasonal = "linear-trend+monthly-seasonality"
)

var (
	ErrInsufficientHistory = errors.New("at least 2 months of history are needed to forecast")
	ErrInvalidHorizon      = fmt.Errorf("horizon must be between 1 and %d", MaxHorizon)
)

type Model struct {
	history    []models.MonthlyPoint
	intercept  float64
	slope      float64
	seasonal   [12]float64
	seasonalOn bool
	sigma      float64
	meanT      float64
	sxx        float64
}

// Fit estimates the model from chronological, gap-free monthly points.
func Fit(points []models.MonthlyPoint) (*Model, error) {
	n := len(points)
	if n < 2 {
		return nil, ErrInsufficientHistory
	}

	m := &Model{history: points}

	var sumT, sumY float64
	for i, p := range points {
		sumT += float64(i)
		sumY += p.Sales
	}
	m.meanT = sumT / float64(n)
	meanY := sumY / float64(n)

	var sxy float64
	for i, p := range points {
		dt := float64(i) - m.meanT
		m.sxx += dt * dt
		sxy += dt * (p.Sales - meanY)
	}
	m.slope = sxy / m.sxx
	m.intercept = meanY - m.slope*m.meanT

	if n >= minSeasonalMonths {
		m.fitSeasonal()
	}

	if n > 2 {
		var sse float64
		for i, p := range points {
			r := p.Sales - m.at(i, p.PeriodEnd.Month())
			sse += r * r
		}
		m.sigma = math.Sqrt(sse / float64(n-2))
	}

	return m, nil
}

// fitSeasonal averages detrended residuals per calendar month and centres
// the twelve indices so they sum to zero.
func (m *Model) fitSeasonal() {
	var sums [12]float64
	var counts [12]int
	for i, p := range m.history {
		idx := int(p.PeriodEnd.Month()) - 1
		sums[idx] += p.Sales - (m.intercept + m.slope*float64(i))
		counts[idx]++
	}

	var total float64
	for i := range sums {
		if counts[i] > 0 {
			m.seasonal[i] = sums[i] / float64(counts[i])
		}
		total += m.seasonal[i]
	}
	mean := total / 12
	for i := range m.seasonal {
		m.seasonal[i] -= mean
	}
	m.seasonalOn = true
}

func (m *Model) at(t int, month time.Month) float64 {
	y := m.intercept + m.slope*float64(t)
	if m.seasonalOn {
		y += m.seasonal[int(month)-1]
	}
	return y
}

func (m *Model) Name() string {
	if m.seasonalOn {
		return modelTrendSeasonal
	}
	return modelTrend
}

func (m *Model) point(t int, periodEnd time.Time, historical bool) models.ForecastPoint {
	yhat := m.at(t, periodEnd.Month())

	n := float64(len(m.history))
	dt := float64(t) - m.meanT
	half := z80 * m.sigma * math.Sqrt(1+1/n+dt*dt/m.sxx)

	return models.ForecastPoint{
		Month:      periodEnd.Format("2006-01"),
		PeriodEnd:  periodEnd,
		Predicted:  math.Max(0, yhat),
		Lower:      math.Max(0, yhat-half),
		Upper:      math.Max(0, yhat+half),
		Historical: historical,
	}
}

// Predict returns in-sample fitted values and horizon future month-end points.
func (m *Model) Predict(horizon int) (*models.Forecast, error) {
	if horizon < 1 || horizon > MaxHorizon {
		return nil, ErrInvalidHorizon
	}

	fc := &models.Forecast{
		Horizon: horizon,
		Model:   m.Name(),
		Fitted:  make([]models.ForecastPoint, 0, len(m.history)),
		Future:  make([]models.ForecastPoint, 0, horizon),
	}

	for i, p := range m.history {
		fc.Fitted = append(fc.Fitted, m.point(i, p.PeriodEnd, true))
	}

	last := m.history[len(m.history)-1].PeriodEnd
	for h := 1; h <= horizon; h++ {
		fc.Future = append(fc.Future, m.point(len(m.history)-1+h, MonthEnd(last, h), false))
	}

	return fc, nil
}

// MonthEnd returns the last day of the month that is offset months after t's.
func MonthEnd(t time.Time, offset int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, offset+1, -1)
}
