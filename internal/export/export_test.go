package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"retail-insights/internal/models"
)

func sampleReport() *models.Report {
	jan := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC)
	return &models.Report{
		ID: "r1",
		Monthly: []models.MonthlyPoint{
			{Month: "2023-01", PeriodEnd: jan, Sales: 100, Profit: 20, Margin: 0.2, Transactions: 2},
			{Month: "2023-02", PeriodEnd: feb, Sales: 200, Profit: 30, Margin: 0.15, Transactions: 3},
		},
		Forecast: &models.Forecast{
			Horizon: 1,
			Fitted: []models.ForecastPoint{
				{Month: "2023-01", PeriodEnd: jan, Predicted: 100, Lower: 100, Upper: 100, Historical: true},
				{Month: "2023-02", PeriodEnd: feb, Predicted: 200, Lower: 200, Upper: 200, Historical: true},
			},
			Future: []models.ForecastPoint{
				{Month: "2023-03", PeriodEnd: mar, Predicted: 300, Lower: 250, Upper: 350},
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"2023-01", "100.00", "20.00", "0.2000", "100.00", "100.00", "100.00"}, rows[1])
	assert.Equal(t, []string{"2023-03", "", "", "", "300.00", "250.00", "350.00"}, rows[3])
}

func TestWriteCSV_NoForecast(t *testing.T) {
	r := sampleReport()
	r.Forecast = nil

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "", rows[2][4])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{monthlySheet, forecastSheet}, f.GetSheetList())

	monthly, err := f.GetRows(monthlySheet)
	require.NoError(t, err)
	require.Len(t, monthly, 3)
	assert.Equal(t, "Month", monthly[0][0])
	assert.Equal(t, "2023-02", monthly[2][0])
	assert.Equal(t, "200", monthly[2][1])

	fc, err := f.GetRows(forecastSheet)
	require.NoError(t, err)
	require.Len(t, fc, 4)
	assert.Equal(t, "2023-03", fc[3][0])
	assert.Equal(t, "FALSE", fc[3][4])
}

func TestWrite_Dispatch(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, Write(&buf, FormatCSV, sampleReport()))
	assert.Error(t, Write(&buf, "pdf", sampleReport()))

	ct, ok := ContentType(FormatXLSX)
	assert.True(t, ok)
	assert.Contains(t, ct, "spreadsheetml")
	_, ok = ContentType("pdf")
	assert.False(t, ok)
}
