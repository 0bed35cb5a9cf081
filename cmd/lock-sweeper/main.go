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
	"github.com/robertarktes/workshop-bookings/internal/clock"
	"github.com/robertarktes/workshop-bookings/internal/config"
	"github.com/robertarktes/workshop-bookings/internal/locks"
	"github.com/robertarktes/workshop-bookings/internal/observability"
)

// lock-sweeper purges expired reservation locks for deployments that run
// several API replicas with LOCK_SWEEP_IN_PROCESS=false.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := observability.SetupOTel(ctx, "workshop-bookings-lock-sweeper", cfg.OTLPEndpoint)
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

	var notifier locks.ExpiryNotifier
	if cfg.Rabbit.URL != "" {
		conn, err := amqp.Dial(cfg.Rabbit.URL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer conn.Close()
		pub, err := rabbit.NewPublisher(conn)
		if err != nil {
			log.Fatalf("failed to create publisher: %v", err)
		}
		defer pub.Close()
		notifier = rabbit.NewLockEvents(pub)
	}

	manager := locks.NewManager(repo, clock.NewRealClock(), cfg.LockTTL())
	sweeper := locks.NewSweeper(manager, cfg.Booking.LockSweepInterval, notifier, logger)

	logger.WithField("interval", cfg.Booking.LockSweepInterval.String()).Info("lock sweeper started")
	if err := sweeper.Run(ctx); err != nil {
		logger.WithError(err).Error("lock sweeper stopped with error")
	}
	logger.Info("Shutdown lock sweeper")
}
