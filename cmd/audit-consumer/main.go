package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/robertarktes/workshop-bookings/internal/adapters/mongo"
	"github.com/robertarktes/workshop-bookings/internal/adapters/rabbit"
	"github.com/robertarktes/workshop-bookings/internal/audit"
	"github.com/robertarktes/workshop-bookings/internal/config"
	"github.com/robertarktes/workshop-bookings/internal/observability"
)

const (
	auditQueue    = "bookings.audit"
	auditPrefetch = 32
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Rabbit.URL == "" || cfg.Mongo.URI == "" {
		log.Fatal("RABBIT_URL and MONGO_URI are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger(cfg.Log.Level)

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	auditLogger := mongoadapter.NewAuditLogger(mongoClient.Database(cfg.Mongo.Database), logger)
	if err := auditLogger.EnsureIndexes(ctx); err != nil {
		log.Fatalf("failed to create audit indexes: %v", err)
	}

	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, auditQueue, "#", auditPrefetch)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume %s: %v", auditQueue, err)
	}

	logger.WithField("queue", auditQueue).Info("audit consumer started")
	if err := audit.NewProjector(auditLogger, logger).Run(ctx, deliveries); err != nil {
		logger.WithError(err).Error("audit consumer stopped with error")
	}
	logger.Info("Shutdown audit consumer")
}
