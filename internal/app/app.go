package app

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"kaongserver/internal/config"
	"kaongserver/internal/logger"
	"kaongserver/internal/metrics"
	"kaongserver/internal/repository/sqlite"
	"kaongserver/internal/routes"
	"kaongserver/internal/services/detector"
	"kaongserver/internal/services/imagestore"
	"kaongserver/internal/services/stats"
)

type App struct {
	config          *config.Config
	logger          *logger.Logger
	db              *sqlite.DB
	repo            *sqlite.AssessmentRepository
	detectorService *detector.Service
	store           *imagestore.Store
	statsService    *stats.Service
	metrics         *metrics.Metrics
}

func New() (*App, error) {
	cfg := config.Load()
	log := logger.New(cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	repo := sqlite.NewAssessmentRepository(db)

	store, err := imagestore.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create image store: %w", err)
	}

	return &App{
		config:          cfg,
		logger:          log,
		db:              db,
		repo:            repo,
		detectorService: detector.New(cfg, log),
		store:           store,
		statsService:    stats.New(repo),
		metrics:         metrics.New(),
	}, nil
}

func (a *App) Run() error {
	router := routes.SetupRoutes(a.detectorService, a.store, a.repo, a.statsService, a.metrics, a.config, a.logger)

	a.logger.Info("Kaong ripeness server listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Uploads: %s", a.config.UploadDir)
	a.logger.Info("Database: %s", a.config.DBPath)
	a.logger.Info("Model: %s", a.config.ModelPath)

	return http.ListenAndServe(fmt.Sprintf(":%d", a.config.Port), router)
}

// Close releases the application's resources.
func (a *App) Close() error {
	a.detectorService.Close()
	return a.db.Close()
}
