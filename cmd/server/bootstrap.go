package main

import (
	"github.com/collabify/backend/internal/config"
	"github.com/collabify/backend/internal/handlers"
	"github.com/collabify/backend/internal/metrics"
	"github.com/collabify/backend/internal/middleware"
	"github.com/collabify/backend/internal/models"
	"github.com/collabify/backend/internal/services"
	"github.com/collabify/backend/internal/utils"
	"github.com/collabify/backend/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds the initialized dependencies shared by the routes.
type appServices struct {
	cfg              *config.Config
	db               *gorm.DB
	authHandler      *handlers.AuthHandler
	cleanupScheduler *services.ActivityCleanupScheduler

	// Sign-in is limited per client IP, interest submission per user
	authLimiter     *middleware.RateLimiter
	interestLimiter *middleware.RateLimiter
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)
	if err := utils.RegisterValidators(); err != nil {
		logger.Fatalf("Failed to register validators: %v", err)
	}

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	db := models.GetDB()
	if sqlDB, err := db.DB(); err == nil {
		if err := metrics.RegisterDBStats(sqlDB, cfg.Database.Driver); err != nil {
			logger.Warn().Err(err).Msg("Failed to register database metrics")
		}
	}

	services.InitActivityLogger(db)

	// Start activity log cleanup scheduler
	cleanup := services.NewActivityCleanupScheduler(db, cfg.ActivityLog)
	if err := cleanup.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start activity log cleanup scheduler")
	}

	if cfg.OAuth.GoogleClientID == "" {
		logger.Warn().Msg("Google OAuth client is not configured, sign-in will fail")
	}
	provider := services.NewGoogleProvider(&cfg.OAuth)

	return &appServices{
		cfg:              cfg,
		db:               db,
		authHandler:      handlers.NewAuthHandler(db, cfg, provider),
		cleanupScheduler: cleanup,
		authLimiter:      middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, middleware.ClientIPKey),
		interestLimiter:  middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, middleware.UserOrIPKey),
	}
}

// shutdown gracefully stops all background work.
func (s *appServices) shutdown() {
	if s.cleanupScheduler != nil {
		s.cleanupScheduler.Stop()
	}
	for _, rl := range []*middleware.RateLimiter{s.authLimiter, s.interestLimiter} {
		if rl != nil {
			rl.Stop()
		}
	}
	logger.Info().Msg("All schedulers stopped")

	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
