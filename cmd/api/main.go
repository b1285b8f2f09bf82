// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/wholesale-backend/internal/config"
	"github.com/your-org/wholesale-backend/internal/domain/stock"
	"github.com/your-org/wholesale-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/wholesale-backend/internal/infrastructure/database/redis"
	"github.com/your-org/wholesale-backend/internal/infrastructure/eventbus"
	"github.com/your-org/wholesale-backend/internal/interfaces/http"
	"github.com/your-org/wholesale-backend/internal/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog := logger.New(cfg)
	appLog.Infof("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	// Connect to database
	db, err := postgres.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer postgres.Close(db)

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Health checks
	if err := postgres.Health(db); err != nil {
		log.Fatalf("Database health check failed: %v", err)
	}
	if err := redisClient.Health(); err != nil {
		log.Fatalf("Redis health check failed: %v", err)
	}

	// Run database migrations
	migration := postgres.NewMigration(db)

	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	if err := migration.CreateIndexes(); err != nil {
		log.Printf("Warning: Index creation failed: %v", err)
	}

	// Seed initial data in development
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			log.Printf("Warning: Data seeding failed: %v", err)
		}
		migration.GetTableInfo()
	}

	// Event bus is optional; the engine runs fine without it.
	var bus stock.EventPublisher
	if cfg.EventBus.Enabled {
		publisher, err := eventbus.NewPublisher(cfg, appLog)
		if err != nil {
			appLog.WithError(err).Warn("Event bus unavailable, continuing without events")
		} else {
			bus = publisher
			defer publisher.Close()
		}
	}

	appLog.Info("✅ All systems operational!")

	// Create and start HTTP server
	server := http.NewServer(cfg, db, redisClient.GetClient(), appLog, bus)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLog.Info("👋 Shutting down gracefully...")

	// Give server 30 seconds to shutdown gracefully
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		appLog.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	appLog.Info("✅ Server shutdown completed")
}
