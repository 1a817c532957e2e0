package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"retail-insights/internal/ingest"
	"retail-insights/internal/models"
	"retail-insights/internal/services"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const salesCSV = `Date,Sales,Profit
2023-01-10,1000,200
2023-01-20,500,100
2023-02-15,1200,300
2023-03-03,1400,280
2023-04-18,1600,400
`

type fixture struct {
	store     *services.Store
	analytics *services.Analytics
	api       *APIHandlers
	sse       *SSEHandlers
	pages     *PageHandlers
	mux       *http.ServeMux
}

func newFixture(t *testing.T, maxUploadBytes int64) *fixture {
	t.Helper()

	store := services.NewStore(10, time.Hour, discardLogger)
	analytics := services.NewAnalytics(ingest.NewParser(ingest.Options{MaxRows: 1000}, discardLogger), 3, discardLogger)

	f := &fixture{
		store:     store,
		analytics: analytics,
		api:       NewAPIHandlers(store, analytics, maxUploadBytes, discardLogger),
		sse:       NewSSEHandlers(store, analytics, discardLogger),
		pages:     NewPageHandlers(store, analytics, maxUploadBytes, discardLogger),
		mux:       http.NewServeMux(),
	}

	f.mux.HandleFunc("GET /{$}", f.pages.HandleDashboard)
	f.mux.HandleFunc("POST /reports", f.pages.HandleUpload)
	f.mux.HandleFunc("GET /reports/{id}", f.pages.HandleReport)
	f.mux.HandleFunc("GET /health", f.api.HandleHealth)
	f.mux.HandleFunc("GET /admin/stats", f.api.HandleStats)
	f.mux.HandleFunc("POST /api/reports", f.api.HandleUpload)
	f.mux.HandleFunc("GET /api/reports", f.api.HandleList)
	f.mux.HandleFunc("GET /api/reports/{id}", f.api.HandleGet)
	f.mux.HandleFunc("DELETE /api/reports/{id}", f.api.HandleDelete)
	f.mux.HandleFunc("GET /api/reports/{id}/metrics", f.api.HandleMetrics)
	f.mux.HandleFunc("GET /api/reports/{id}/monthly", f.api.HandleMonthly)
	f.mux.HandleFunc("GET /api/reports/{id}/forecast", f.api.HandleForecast)
	f.mux.HandleFunc("GET /api/reports/{id}/export", f.api.HandleExport)
	f.mux.HandleFunc("GET /sse/reports/{id}", f.sse.HandleReport)
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	if data != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func (f *fixture) upload(t *testing.T) *models.Report {
	t.Helper()
	w := f.do(uploadRequest(t, "/api/reports", "sales.csv", salesCSV, nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var report models.Report
	decode(t, w, &report)
	return &report
}
