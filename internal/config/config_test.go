package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8084, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, 3, cfg.Analysis.ForecastHorizon)
	assert.Equal(t, int64(256<<20), cfg.Analysis.MaxUnzipBytes)
	assert.Equal(t, 100, cfg.Storage.MaxReports)
	assert.Equal(t, []string{"http://localhost:8084"}, cfg.Security.AllowedOrigins)
	assert.Empty(t, cfg.SampleFile)
	assert.Equal(t, "localhost:8084", cfg.Address())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("STORE_REPORT_TTL", "2h")
	t.Setenv("ANALYSIS_FORECAST_HORIZON", "6")
	t.Setenv("SAMPLE_FILE", "testdata/sales.csv")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "text", cfg.Logger.Format)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.Storage.ReportTTL)
	assert.Equal(t, 6, cfg.Analysis.ForecastHorizon)
	assert.Equal(t, "testdata/sales.csv", cfg.SampleFile)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantMsg string
	}{
		{"port out of range", "SERVER_PORT", "70000", "Port"},
		{"bad log level", "LOG_LEVEL", "verbose", "must be one of"},
		{"bad log format", "LOG_FORMAT", "xml", "must be one of"},
		{"zero rate limit", "SECURITY_RATE_LIMIT_RPS", "0", "must be positive"},
		{"horizon too long", "ANALYSIS_FORECAST_HORIZON", "48", "ForecastHorizon"},
		{"unzip cap below upload cap", "ANALYSIS_MAX_UNZIP_BYTES", "1024", "MaxUnzipBytes must be at least MaxUploadBytes"},
		{"janitor slower than ttl", "STORE_JANITOR_INTERVAL", "48h", "janitor interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_MalformedValue(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read environment")
}
