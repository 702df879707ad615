package main

import (
	"listing-service/internal/handler"
	mid "listing-service/internal/middleware"
	"listing-service/internal/service"
	"listing-service/pkg/config"
	"listing-service/pkg/database"
	"listing-service/pkg/geocode"
	"listing-service/pkg/jwtutil"
	"listing-service/pkg/logger"
	"listing-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting listing-service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize JWT utility
	jwtutil.Initialize(&appConfig.JWT)
	mid.SignInURL = appConfig.JWT.SignInURL
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	err = database.InitDB(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Wire the domain services
	geocoder := geocode.NewClient(
		appConfig.Geocode.BaseURL,
		appConfig.Geocode.APIKey,
		appConfig.Geocode.Timeout,
	)
	listings := service.NewListingService(
		database.GetDB(),
		geocoder,
		appConfig.Database.TxAcquireWait,
		appConfig.Database.TxTimeout,
	)
	listingHandler := handler.NewListingHandler(database.GetDB(), listings)
	uploadHandler := handler.NewUploadHandler(&appConfig.Upload)

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Routes
	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", handler.Health)

	// Public listing routes
	e.GET("/api/search", listingHandler.Search)
	e.GET("/api/listings/:id", listingHandler.GetListing)

	// Uploaded images are served back as public URLs
	e.Static(appConfig.Upload.BaseURL, appConfig.Upload.Dir)

	// Authenticated listing routes
	listingAPI := e.Group("/api", mid.AuthMiddleware)
	listingAPI.GET("/my-listings", listingHandler.MyListings)
	listingAPI.POST("/listings", listingHandler.CreateListing)
	listingAPI.PUT("/listings/:id", listingHandler.UpdateListing)
	listingAPI.DELETE("/listings/:id", listingHandler.DeleteListing)
	listingAPI.POST("/uploads", uploadHandler.Upload)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
