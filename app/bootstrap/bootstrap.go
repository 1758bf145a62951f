package bootstrap

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/docuchat/backend-go/internal/config"
	"github.com/docuchat/backend-go/internal/database"
	"github.com/docuchat/backend-go/internal/di"
	"github.com/docuchat/backend-go/internal/logger"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks  []func() error
	healthChecker *database.HealthChecker
	poolCollector *database.MetricsCollector
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// SetGlobalApp sets the global app instance
func SetGlobalApp(app *App) {
	globalApp = app
}

// HealthStatus returns the latest database health snapshot.
func (a *App) HealthStatus() database.HealthStatus {
	if a.healthChecker == nil {
		return database.HealthStatus{}
	}
	return a.healthChecker.Status()
}

// Init bootstraps configuration, logger, database connections and other shared
// infrastructure components required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}

	app := &App{}

	// Initialize database.
	db, err := database.InitDB()
	if err != nil {
		return nil, err
	}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		return database.CloseDB()
	})

	// Start background health checking and pool metrics on the raw connection.
	if sqlDB, err := db.DB(); err == nil {
		app.healthChecker = database.NewHealthChecker(sqlDB, 30*time.Second)
		app.healthChecker.Start()
		app.cleanupTasks = append(app.cleanupTasks, func() error {
			app.healthChecker.Stop()
			return nil
		})

		app.poolCollector = database.NewMetricsCollector(sqlDB, 15*time.Second)
		app.poolCollector.Start()
		app.cleanupTasks = append(app.cleanupTasks, func() error {
			app.poolCollector.Stop()
			return nil
		})
	}

	// Initialize Redis (optional). Failure shouldn't block the app.
	if _, err := database.InitRedis(); err != nil {
		logger.Warn("Failed to initialize Redis", zap.Error(err))
	} else {
		app.cleanupTasks = append(app.cleanupTasks, func() error {
			return database.CloseRedis()
		})
	}

	// Wire the dependency injection container.
	container := di.InitContainer()
	if err := di.RegisterProviders(container); err != nil {
		return nil, err
	}

	return app, nil
}

// Shutdown flushes/logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}

	// Flush logger buffers.
	logger.Sync()
}
