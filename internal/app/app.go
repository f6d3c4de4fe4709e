package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brickworks/listings/internal/config"
	"github.com/brickworks/listings/internal/db"
	"github.com/brickworks/listings/internal/fallback"
	"github.com/brickworks/listings/internal/media"
	"github.com/brickworks/listings/internal/repository"
	"github.com/brickworks/listings/internal/service"
	"github.com/brickworks/listings/internal/storage"
)

type App struct {
	Cfg             *config.Config
	DB              *sqlx.DB
	AssetStore      storage.AssetStore
	PropertyService *service.PropertyService
	LeadService     *service.LeadService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	propertyRepository := repository.NewPropertyRepository(database)
	leadRepository := repository.NewLeadRepository(database)

	// Storage
	assetStore, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize asset store: %v", err)
	}
	fallbackStore := fallback.NewStore(cfg.FallbackPath, cfg.FallbackCapacity)
	reorganizer := media.NewReorganizer(assetStore, cfg.TempUploadPrefix)

	// Services
	propertyService := service.NewPropertyService(
		propertyRepository,
		fallbackStore,
		reorganizer,
		cfg.CompressMaxDim,
		cfg.CompressQuality,
	)
	leadService := service.NewLeadService(leadRepository)

	return &App{
		Cfg:             cfg,
		DB:              database,
		AssetStore:      assetStore,
		PropertyService: propertyService,
		LeadService:     leadService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
