package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/parcel-pickup/internal/api/handlers"
	"github.com/gocomet/parcel-pickup/internal/api/middleware"
	"github.com/gocomet/parcel-pickup/internal/api/routes"
	"github.com/gocomet/parcel-pickup/internal/config"
	"github.com/gocomet/parcel-pickup/internal/service/auth"
	"github.com/gocomet/parcel-pickup/internal/service/ratings"
	"github.com/gocomet/parcel-pickup/internal/service/tasks"
	"github.com/gocomet/parcel-pickup/pkg/cache"
	"github.com/gocomet/parcel-pickup/pkg/logger"
	"github.com/gocomet/parcel-pickup/pkg/monitoring"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Parcel Pickup service",
		logger.String("env", cfg.Server.Env),
		logger.String("port", cfg.Server.Port),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("version", cfg.Server.Version),
	)

	// Initialize New Relic
	nrApp, err := monitoring.New(monitoring.Config{
		LicenseKey: cfg.NewRelic.LicenseKey,
		AppName:    cfg.NewRelic.AppName,
		Enabled:    cfg.NewRelic.Enabled,
		LogLevel:   cfg.NewRelic.LogLevel,
	})
	if err != nil {
		appLogger.Warn("Failed to initialize New Relic", logger.Err(err))
		nrApp = monitoring.Disabled()
	} else if nrApp.IsEnabled() {
		appLogger.Info("New Relic APM initialized successfully",
			logger.String("app_name", cfg.NewRelic.AppName))
	} else {
		appLogger.Info("New Relic APM disabled")
	}
	defer nrApp.Shutdown(10 * time.Second)

	// Initialize storage
	ctx := context.Background()
	store, err := openStorage(ctx, cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize storage", logger.Err(err))
	}
	defer func() {
		if err := store.close(); err != nil {
			appLogger.Error("Failed to close storage", logger.Err(err))
		}
	}()

	appLogger.Info("Storage ready", logger.String("driver", cfg.Storage.Driver))

	// Initialize services
	authSvc, err := auth.NewService(store.users, auth.Config{
		Secret:     []byte(cfg.JWT.Secret),
		Issuer:     cfg.JWT.Issuer,
		TokenTTL:   cfg.JWT.Expiry,
		BcryptCost: cfg.Auth.BcryptCost,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize auth service", logger.Err(err))
	}
	taskSvc := tasks.NewService(store.tasks, nrApp, appLogger)
	ratingSvc := ratings.NewService(store.ratings, store.tasks, cfg.Reputation.Default, nrApp, appLogger)

	// Initialize handlers with dependencies
	h := handlers.NewHandlers(authSvc, taskSvc, ratingSvc, appLogger, nrApp)
	h.Ping = store.ping(nrApp)
	h.Version = cfg.Server.Version

	// Initialize Redis
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cache.Config{
			Host:        cfg.Redis.Host,
			Port:        cfg.Redis.Port,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			MaxRetries:  cfg.Redis.MaxRetries,
			PoolSize:    cfg.Redis.PoolSize,
			MinIdleConn: cfg.Redis.MinIdleConn,
			DialTimeout: cfg.Redis.DialTimeout,
			ReadTimeout: cfg.Redis.ReadTimeout,
		})
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", logger.Err(err))
		}
		defer cache.Close(redisClient)

		h.LoginLimiter = cache.NewAttemptLimiter(redisClient, cfg.Redis.KeyPrefix, cfg.RateLimit.LoginAttemptsPerMinute, time.Minute)
		h.Idempotency = cache.NewResponseStore(redisClient, cfg.Redis.KeyPrefix, cfg.Cache.TTLIdempotency)

		appLogger.Info("Connected to Redis successfully")
	} else {
		appLogger.Info("Redis disabled; login throttling and publish replay are off")
	}

	// Initialize Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(appLogger),
		middleware.RequestLogger(appLogger),
		middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: cfg.CORS.AllowedMethods,
			AllowedHeaders: cfg.CORS.AllowedHeaders,
		}),
	)

	// Setup all routes
	routes.SetupRoutes(router, h, nrApp.App())

	appLogger.Info("Routes configured successfully")

	// Create HTTP server
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("Server starting", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", logger.Err(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.Err(err))
	}

	appLogger.Info("Server stopped gracefully")
}
