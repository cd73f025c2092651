// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/framelock/capture-backend/internal/config"
	"github.com/framelock/capture-backend/internal/handlers"
	"github.com/framelock/capture-backend/internal/middleware"
	"github.com/framelock/capture-backend/internal/services"
)

func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, error) {
	// Initialize services
	storageService := services.NewStorageService(cfg)
	recordStoreService := services.NewRecordStoreService(cfg)

	chainService, err := services.NewChainService(cfg, db)
	if err != nil {
		return nil, err
	}

	archiveService, err := services.NewArchiveService(cfg)
	if err != nil {
		logrus.WithError(err).Warn("Archive service unavailable, continuing without it")
		archiveService = nil
	}

	// The archive is optional; pass a nil interface rather than a typed nil.
	var archiver services.DocumentArchiver
	if archiveService != nil {
		archiver = archiveService
	}

	registrationService := services.NewRegistrationService(
		db, storageService, chainService, recordStoreService, archiver, cfg)

	// Initialize handlers
	registrationHandler := handlers.NewRegistrationHandler(registrationService)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// Metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	{
		registrations := v1.Group("/registrations")
		{
			registrations.POST("", registrationHandler.RegisterCapture)
			registrations.GET("", registrationHandler.GetRegistrations)
			registrations.GET("/:imageCid", registrationHandler.GetRegistration)
		}
	}

	return r, nil
}
