package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abkawan/account-ledger/internal/api"
	"github.com/abkawan/account-ledger/internal/config"
	"github.com/abkawan/account-ledger/internal/db"
	"github.com/abkawan/account-ledger/internal/queue"
	"github.com/abkawan/account-ledger/internal/service"
	"github.com/gorilla/mux"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Connecting to Postgres
	logger.Info("connecting to PostgreSQL...")
	postgres, err := db.NewPostgres(cfg.PostgresURI)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer postgres.Close()

	// Create schema
	logger.Info("creating the schema...")
	if err := postgres.InitSchema(ctx); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	// The archive pipeline is optional; the ledger commits to Postgres
	// regardless.
	var (
		events  service.EventPublisher
		archive service.ArchiveStore
	)
	if cfg.ArchiveEnabled {
		logger.Info("connecting to RabbitMQ...")
		rabbitmq, err := queue.NewRabbitMQ(cfg.RabbitMQURI)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer rabbitmq.Close()
		events = rabbitmq

		logger.Info("connecting to MongoDB...")
		mongodb, err := db.NewMongoDB(cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatalf("failed to connect to MongoDB: %v", err)
		}
		defer mongodb.Close(ctx)
		archive = mongodb
	}

	// Create services
	accountService := service.NewAccountService(postgres, events, logger)
	queryService := service.NewQueryService(postgres, archive)

	// Create router and set up routes
	router := mux.NewRouter()
	api.SetupRoutes(router, accountService, queryService)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}

	logger.Info("server shut down successfully")
}
