package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/abkawan/account-ledger/internal/config"
	"github.com/abkawan/account-ledger/internal/db"
	"github.com/abkawan/account-ledger/internal/queue"
	"github.com/abkawan/account-ledger/internal/service"
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

	// Connect to MongoDB
	logger.Info("connecting to MongoDB...")
	mongodb, err := db.NewMongoDB(cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer mongodb.Close(ctx)

	// Connect to RabbitMQ
	logger.Info("connecting to RabbitMQ...")
	rabbitmq, err := queue.NewRabbitMQ(cfg.RabbitMQURI)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitmq.Close()

	// Start the archiver
	archiver := service.NewArchiver(rabbitmq, mongodb, logger)
	if err := archiver.Start(ctx); err != nil {
		log.Fatalf("failed to start archiver: %v", err)
	}

	logger.Info("archiver started")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down archiver...")
	cancel() // Cancel context to stop the consumer
	logger.Info("archiver shut down successfully")
}
