package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/workshop-bookings/internal/adapters/crdb"
	"github.com/robertarktes/workshop-bookings/internal/adapters/rabbit"
	"github.com/robertarktes/workshop-bookings/internal/config"
	"github.com/robertarktes/workshop-bookings/internal/observability"
	"github.com/robertarktes/workshop-bookings/internal/outbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Rabbit.URL == "" {
		log.Fatal("RABBIT_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := observability.SetupOTel(ctx, "workshop-bookings-outbox", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger(cfg.Log.Level)

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool, crdb.Options{Timeout: cfg.DB.Timeout, MaxRetries: cfg.DB.TxRetries})

	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	defer rabbitPub.Close()

	publisher := outbox.NewPublisher(repo, rabbitPub, logger, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize)

	logger.Info("Outbox publisher started")
	if err := publisher.Run(ctx); err != nil {
		logger.WithError(err).Error("outbox publisher stopped with error")
	}
	logger.Info("Shutdown outbox publisher")
}
