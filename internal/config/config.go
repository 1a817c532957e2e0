package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Storage  StorageConfig  `envconfig:"STORE"`
	Logger   LoggerConfig   `envconfig:"LOG"`
	Security SecurityConfig `envconfig:"SECURITY"`
	Analysis AnalysisConfig `envconfig:"ANALYSIS"`

	// SampleFile is loaded as a report at startup when set.
	SampleFile string `envconfig:"SAMPLE_FILE"`
}

type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            int           `envconfig:"PORT" default:"8084" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"30s" validate:"gt=0"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s" validate:"gt=0"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`
}

type StorageConfig struct {
	SnapshotFile string        `envconfig:"SNAPSHOT_FILE" default:".cache/reports_v1.gob"`
	MaxReports   int           `envconfig:"MAX_REPORTS" default:"100" validate:"min=1"`
	ReportTTL    time.Duration `envconfig:"REPORT_TTL" default:"24h" validate:"gt=0"`
	JanitorEvery time.Duration `envconfig:"JANITOR_INTERVAL" default:"5m" validate:"gt=0"`
}

type LoggerConfig struct {
	Level  string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
}

type SecurityConfig struct {
	EnableCSRF      bool     `envconfig:"CSRF_ENABLED" default:"true"`
	EnableRateLimit bool     `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRPS    int      `envconfig:"RATE_LIMIT_RPS" default:"100" validate:"gt=0"`
	RateLimitBurst  int      `envconfig:"RATE_LIMIT_BURST" default:"10" validate:"gt=0"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8084"`
	TrustedProxies  []string `envconfig:"TRUSTED_PROXIES" default:"127.0.0.1"`
}

type AnalysisConfig struct {
	MaxUploadBytes  int64 `envconfig:"MAX_UPLOAD_BYTES" default:"33554432" validate:"gt=0"`
	MaxUnzipBytes   int64 `envconfig:"MAX_UNZIP_BYTES" default:"268435456" validate:"gtefield=MaxUploadBytes"`
	MaxRows         int   `envconfig:"MAX_ROWS" default:"1000000" validate:"gt=0"`
	ForecastHorizon int   `envconfig:"FORECAST_HORIZON" default:"3" validate:"min=1,max=24"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if c.Storage.JanitorEvery > c.Storage.ReportTTL {
		return fmt.Errorf("janitor interval %s exceeds report TTL %s", c.Storage.JanitorEvery, c.Storage.ReportTTL)
	}

	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("invalid %s %q, must be one of: %s", fe.Namespace(), fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s, got %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be positive", fe.Namespace())
	case "gtefield":
		return fmt.Sprintf("%s must be at least %s", fe.Namespace(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag())
	}
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
