package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/abdullah0408/server/internal/db"
	apphttp "github.com/abdullah0408/server/internal/http"
	"github.com/abdullah0408/server/internal/jobs"
	"github.com/abdullah0408/server/internal/observability"
	"github.com/abdullah0408/server/internal/platform/logger"
)

type App struct {
	Log        *logger.Logger
	DB         *gorm.DB
	Cfg        Config
	Repos      Repos
	Clients    Clients
	Services   Services
	Metrics    *observability.Metrics
	Supervisor *jobs.Supervisor
	Server     *apphttp.Server

	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	otelShutdown := observability.InitOTel(context.Background(), log, cfg.Otel)

	dbService, err := db.NewService(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := dbService.DB()

	reposet := wireRepos(theDB, log)
	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}
	serviceset := wireServices(log, reposet, clients)
	metrics := observability.NewMetrics()

	sup, err := wirePipelines(log, cfg, reposet, clients, metrics)
	if err != nil {
		_ = clients.Bus.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, dbService, serviceset, sup)
	server := apphttp.NewServer(":"+cfg.Port, apphttp.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     otelServiceName(cfg),
		AllowedOrigins:  cfg.AllowedOrigins,
		HealthHandler:   handlerset.Health,
		PipelineHandler: handlerset.Pipeline,
		CourseHandler:   handlerset.Course,
		ChapterHandler:  handlerset.Chapter,
		JobHandler:      handlerset.Job,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		Supervisor:   sup,
		Server:       server,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

func otelServiceName(cfg Config) string {
	if !cfg.Otel.Enabled {
		return ""
	}
	return cfg.Otel.ServiceName
}

// Start launches the pipeline schedulers and the queue depth collector.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Supervisor.Start(ctx)
	a.Metrics.StartQueueCollector(ctx, a.Log, a.Cfg.MetricsInterval, map[string]observability.StatusCounter{
		"course":  a.Repos.Course,
		"chapter": a.Repos.Chapter,
	})
}

// Run serves the operator API until Shutdown.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Operator API listening", "port", a.Cfg.Port)
	return a.Server.Run()
}

// Shutdown stops new ticks, waits for in-flight runs, then stops the HTTP
// server. ctx bounds the whole sequence.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Supervisor != nil {
		if err := a.Supervisor.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop pipelines: %w", err))
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Clients.Bus != nil {
		_ = a.Clients.Bus.Close()
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
