package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/db"
	"github.com/studyforge/learning-engine/internal/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	cancel   context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet)
	if err != nil {
		log.Sync()
		return nil, err
	}

	// Install default algorithm configuration for empty families.
	if err := serviceset.Registry.Seed(context.Background()); err != nil {
		log.Sync()
		return nil, fmt.Errorf("seed registry: %w", err)
	}

	return &App{
		Log:      log,
		DB:       theDB,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
	}, nil
}

// Start launches the background worker and the nightly scheduler.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Services.Worker.Start(ctx)
	if err := a.Services.Scheduler.Start(a.Cfg.NightlyAt); err != nil {
		cancel()
		a.cancel = nil
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.Log.Info("engine started", "nightly_at", a.Cfg.NightlyAt)
	return nil
}

func (a *App) Stop() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Services.Scheduler.Stop()
	a.Log.Sync()
}
