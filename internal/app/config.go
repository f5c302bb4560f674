package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdullah0408/server/internal/clients/stageworker"
	"github.com/abdullah0408/server/internal/db"
	"github.com/abdullah0408/server/internal/http/middleware"
	"github.com/abdullah0408/server/internal/jobs/pipeline"
	"github.com/abdullah0408/server/internal/observability"
	"github.com/abdullah0408/server/internal/platform/envutil"
	"github.com/abdullah0408/server/internal/platform/events"
	"github.com/abdullah0408/server/internal/platform/logger"
)

type PipelineConfig struct {
	Enabled     bool
	Interval    time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
}

type Config struct {
	Port           string
	AllowedOrigins []string

	StageWorker stageworker.Config
	DB          db.Config
	Redis       events.RedisConfig
	Otel        observability.OtelConfig

	MetricsInterval time.Duration
	Pipelines       map[string]PipelineConfig
}

// pipelinesFile is the optional YAML overlay named by PIPELINES_CONFIG.
type pipelinesFile struct {
	Pipelines map[string]struct {
		Enabled     *bool  `yaml:"enabled"`
		Interval    string `yaml:"interval"`
		MaxAttempts *int   `yaml:"max_attempts"`
		BaseDelay   string `yaml:"base_delay"`
	} `yaml:"pipelines"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	interval := envutil.Seconds("POLL_INTERVAL_SECONDS", time.Minute, log)
	maxAttempts := envutil.Int("JOB_MAX_ATTEMPTS", pipeline.DefaultMaxAttempts, log)
	baseDelay := envutil.Millis("JOB_RETRY_BASE_DELAY_MS", pipeline.DefaultBaseDelay, log)

	cfg := Config{
		Port:           envutil.String("PORT", "3009", log),
		AllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", middleware.DefaultAllowedOrigins, log),
		StageWorker: stageworker.Config{
			BaseURL: envutil.FirstString([]string{"STAGE_WORKER_URL", "DEPLOYED_URL"}, stageworker.DefaultBaseURL, log),
			Timeout: envutil.Seconds("STAGE_WORKER_TIMEOUT_SECONDS", 300*time.Second, log),
		},
		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverPostgres, log),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost", log),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432", log),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres", log),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", "", log),
			PostgresName:     envutil.String("POSTGRES_NAME", "coursegen", log),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable", log),
			SQLitePath:       envutil.String("SQLITE_PATH", "coursegen.db", log),
			MaxOpenConns:     envutil.Int("DB_MAX_OPEN_CONNS", 10, log),
		},
		Redis: events.RedisConfig{
			Addr:     envutil.String("REDIS_ADDR", "", log),
			Password: envutil.String("REDIS_PASSWORD", "", log),
			DB:       envutil.Int("REDIS_DB", 0, log),
			Channel:  envutil.String("REDIS_CHANNEL", "job_status", log),
		},
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "coursegen-jobs", log),
			Environment: envutil.String("OTEL_ENVIRONMENT", "development", log),
			Version:     envutil.String("SERVICE_VERSION", "", log),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", true, log),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log)),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1, log),
		},
		MetricsInterval: envutil.Seconds("METRICS_COLLECT_INTERVAL_SECONDS", 30*time.Second, log),
		Pipelines:       map[string]PipelineConfig{},
	}
	for _, def := range pipeline.Definitions() {
		cfg.Pipelines[def.Name] = PipelineConfig{
			Enabled:     true,
			Interval:    interval,
			MaxAttempts: maxAttempts,
			BaseDelay:   baseDelay,
		}
	}

	if path := envutil.String("PIPELINES_CONFIG", "", log); path != "" {
		if err := applyPipelinesFile(&cfg, path); err != nil {
			return Config{}, err
		}
		log.Info("Loaded pipeline overrides", "path", path)
	}
	return cfg, nil
}

func applyPipelinesFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var file pipelinesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for name, o := range file.Pipelines {
		pc, ok := cfg.Pipelines[name]
		if !ok {
			return fmt.Errorf("%s: unknown pipeline %q", path, name)
		}
		if o.Enabled != nil {
			pc.Enabled = *o.Enabled
		}
		if s := strings.TrimSpace(o.Interval); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil || d <= 0 {
				return fmt.Errorf("%s: pipeline %s: bad interval %q", path, name, s)
			}
			pc.Interval = d
		}
		if o.MaxAttempts != nil {
			if *o.MaxAttempts < 1 {
				return fmt.Errorf("%s: pipeline %s: max_attempts must be >= 1", path, name)
			}
			pc.MaxAttempts = *o.MaxAttempts
		}
		if s := strings.TrimSpace(o.BaseDelay); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil || d < 0 {
				return fmt.Errorf("%s: pipeline %s: bad base_delay %q", path, name, s)
			}
			pc.BaseDelay = d
		}
		cfg.Pipelines[name] = pc
	}
	return nil
}
