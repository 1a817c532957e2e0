package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPages_Dashboard(t *testing.T) {
	f := newFixture(t, 1<<20)
	f.upload(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "This report provides an analysis of your retail business performance")
	assert.Contains(t, body, `enctype="multipart/form-data"`)
	assert.Contains(t, body, "sales.csv")
	assert.Contains(t, body, "$5,700.00")
}

func TestPages_UploadRedirects(t *testing.T) {
	f := newFixture(t, 1<<20)

	w := f.do(uploadRequest(t, "/reports", "sales.csv", salesCSV, map[string]string{"horizon": "5"}))
	require.Equal(t, http.StatusSeeOther, w.Code)

	location := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/reports/"), location)

	w = f.do(httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "sales.csv")
	assert.Contains(t, body, "/sse"+location+"?horizon=5")
}

func TestPages_UploadErrorShowsForm(t *testing.T) {
	f := newFixture(t, 1<<20)

	w := f.do(uploadRequest(t, "/reports", "sales.csv", "Amount\n1\n", nil))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "upload-error")
	assert.Contains(t, body, "no date column found in the data")
	assert.Contains(t, body, `action="/reports"`)
}

func TestPages_ReportNotFound(t *testing.T) {
	f := newFixture(t, 1<<20)

	w := f.do(httptest.NewRequest(http.MethodGet, "/reports/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Report not found or expired")
}
