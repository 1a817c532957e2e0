package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"retail-insights/internal/models"
)

func TestAPI_UploadCSV(t *testing.T) {
	f := newFixture(t, 1<<20)

	w := f.do(uploadRequest(t, "/api/reports", "sales.csv", salesCSV, map[string]string{"horizon": "4"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var report models.Report
	env := decode(t, w, &report)
	require.True(t, env.Success)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "/api/reports/"+report.ID, w.Header().Get("Location"))
	assert.Equal(t, "sales.csv", report.Filename)
	assert.InDelta(t, 5700.0, report.Metrics.TotalSales, 1e-9)
	assert.InDelta(t, 1280.0, report.Metrics.TotalProfit, 1e-9)
	assert.InDelta(t, 1280.0/5700.0, report.Metrics.AverageMargin, 1e-9)
	assert.Len(t, report.Monthly, 4)
	require.NotNil(t, report.Forecast)
	assert.Len(t, report.Forecast.Future, 4)
	assert.Equal(t, 1, f.store.Len())
}

func TestAPI_UploadXLSX(t *testing.T) {
	f := newFixture(t, 1<<20)

	wb := excelize.NewFile()
	rows := [][]any{
		{"Order Date", "Total Sales"},
		{"2023-01-05", 100},
		{"2023-02-05", 200},
		{"2023-03-05", 300},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow("Sheet1", cellName, &row))
	}
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	w := f.do(uploadRequest(t, "/api/reports", "sales.xlsx", buf.String(), nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var report models.Report
	decode(t, w, &report)
	assert.Equal(t, "xlsx", report.Format)
	assert.InDelta(t, 600.0, report.Metrics.TotalSales, 1e-9)
	assert.InDelta(t, 120.0, report.Metrics.TotalProfit, 1e-9)
	assert.True(t, report.Metrics.ProfitAssumed)
}

func TestAPI_UploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		status   int
		code     string
	}{
		{"unsupported extension", "sales.pdf", "x", nil, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
		{"legacy xls", "sales.xls", "x", nil, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
		{"no date column", "sales.csv", "Amount,Sales\n1,2\n", nil, http.StatusUnprocessableEntity, "UNPROCESSABLE"},
		{"no sales column", "sales.csv", "Date,Amount\n2023-01-01,2\n", nil, http.StatusUnprocessableEntity, "UNPROCESSABLE"},
		{"no valid rows", "sales.csv", "Date,Sales\nnope,abc\n", nil, http.StatusUnprocessableEntity, "UNPROCESSABLE"},
		{"empty file", "sales.csv", "", nil, http.StatusUnprocessableEntity, "UNPROCESSABLE"},
		{"missing file", "", "", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad horizon", "sales.csv", salesCSV, map[string]string{"horizon": "abc"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"horizon too long", "sales.csv", salesCSV, map[string]string{"horizon": "99"}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1<<20)

			w := f.do(uploadRequest(t, "/api/reports", tt.filename, tt.content, tt.fields))
			require.Equal(t, tt.status, w.Code, w.Body.String())

			env := decode(t, w, nil)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Zero(t, f.store.Len())
		})
	}
}

func TestAPI_UploadTooLarge(t *testing.T) {
	f := newFixture(t, 512)

	big := salesCSV + strings.Repeat("2023-05-01,10,1\n", 200)
	w := f.do(uploadRequest(t, "/api/reports", "sales.csv", big, nil))

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.Equal(t, "PAYLOAD_TOO_LARGE", decode(t, w, nil).Error.Code)
}

func TestAPI_UploadNotMultipart(t *testing.T) {
	f := newFixture(t, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(salesCSV))
	req.Header.Set("Content-Type", "text/csv")
	w := f.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_ListGetDelete(t *testing.T) {
	f := newFixture(t, 1<<20)
	report := f.upload(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var list []models.ReportSummary
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, report.ID, list[0].ID)
	assert.Equal(t, 4, list[0].Months)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Report
	decode(t, w, &got)
	assert.Equal(t, report.Description, got.Description)

	w = f.do(httptest.NewRequest(http.MethodDelete, "/api/reports/"+report.ID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w, nil).Error.Code)

	w = f.do(httptest.NewRequest(http.MethodDelete, "/api/reports/"+report.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_MetricsAndMonthly(t *testing.T) {
	f := newFixture(t, 1<<20)
	report := f.upload(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID+"/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var metrics struct {
		Metrics     models.Metrics   `json:"metrics"`
		Columns     models.ColumnMap `json:"columns"`
		Description string           `json:"description"`
	}
	decode(t, w, &metrics)
	assert.InDelta(t, 5700.0, metrics.Metrics.TotalSales, 1e-9)
	assert.Equal(t, "Date", metrics.Columns.Date)
	assert.Equal(t, "Profit", metrics.Columns.Profit)
	assert.Contains(t, metrics.Description, "$5,700.00")

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID+"/monthly", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var monthly []models.MonthlyPoint
	decode(t, w, &monthly)
	require.Len(t, monthly, 4)
	assert.Equal(t, "2023-01", monthly[0].Month)
	assert.InDelta(t, 1500.0, monthly[0].Sales, 1e-9)
	assert.Equal(t, 2, monthly[0].Transactions)
}

func TestAPI_Forecast(t *testing.T) {
	f := newFixture(t, 1<<20)
	report := f.upload(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID+"/forecast", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var fc models.Forecast
	decode(t, w, &fc)
	assert.Equal(t, 3, fc.Horizon)
	require.Len(t, fc.Future, 3)
	assert.Equal(t, "2023-05", fc.Future[0].Month)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID+"/forecast?horizon=12", nil))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &fc)
	assert.Len(t, fc.Future, 12)

	stored, err := f.store.Get(report.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Forecast.Future, 3, "refit must not change the stored report")

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID+"/forecast?horizon=0", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_Export(t *testing.T) {
	f := newFixture(t, 1<<20)
	report := f.upload(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID+"/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="sales_report.csv"`)

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"month", "sales", "profit", "margin", "forecast", "lower", "upper"}, rows[0])
	assert.Len(t, rows, 1+4+3)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID+"/export?format=xlsx&horizon=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), "Monthly")
	assert.Contains(t, wb.GetSheetList(), "Forecast")

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID+"/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_HealthAndStats(t *testing.T) {
	f := newFixture(t, 1<<20)
	f.upload(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	decode(t, w, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, float64(1), health["reports"])

	w = f.do(httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]any
	decode(t, w, &stats)
	assert.Equal(t, float64(1), stats["reports"])
	assert.Equal(t, float64(3), stats["forecast_horizon"])
}

func TestParseHorizon(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{" 6 ", 6, false},
		{"1", 1, false},
		{"24", 24, false},
		{"0", 0, true},
		{"25", 0, true},
		{"-3", 0, true},
		{"two", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseHorizon(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
