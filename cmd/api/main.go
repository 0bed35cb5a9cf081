package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/robertarktes/workshop-bookings/internal/adapters/crdb"
	"github.com/robertarktes/workshop-bookings/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/workshop-bookings/internal/adapters/redis"
	"github.com/robertarktes/workshop-bookings/internal/admin"
	"github.com/robertarktes/workshop-bookings/internal/availability"
	"github.com/robertarktes/workshop-bookings/internal/booking"
	"github.com/robertarktes/workshop-bookings/internal/clock"
	"github.com/robertarktes/workshop-bookings/internal/config"
	httphandler "github.com/robertarktes/workshop-bookings/internal/http"
	"github.com/robertarktes/workshop-bookings/internal/idempotency"
	"github.com/robertarktes/workshop-bookings/internal/locks"
	"github.com/robertarktes/workshop-bookings/internal/observability"
	"github.com/robertarktes/workshop-bookings/internal/rateLimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := observability.SetupOTel(ctx, "workshop-bookings-api", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger(cfg.Log.Level)
	observability.InitMetrics()

	policy, err := cfg.Policy()
	if err != nil {
		log.Fatalf("invalid booking policy: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	if cfg.DB.AutoSchema {
		if err := crdb.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("failed to apply schema: %v", err)
		}
	}
	repo := crdb.NewRepository(pool, crdb.Options{Timeout: cfg.DB.Timeout, MaxRetries: cfg.DB.TxRetries})

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.Redis.Addr})
	defer redisClient.Close()
	redisCache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.HTTP.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(redisCache, cfg.HTTP.RateLimitPerMinute, time.Minute)

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

	clk := clock.NewRealClock()
	avail := availability.NewService(repo, clk, policy)
	lockManager := locks.NewManager(repo, clk, cfg.LockTTL())

	handlers := httphandler.NewHandlers(httphandler.Deps{
		Availability: avail,
		Bookings:     booking.NewService(repo, repo, avail, clk, logger),
		Locks:        lockManager,
		Admin:        admin.NewService(repo, clk),
		Location:     policy.Location,
		Logger:       logger,
		Ready: map[string]httphandler.Pinger{
			"crdb":  repo,
			"redis": redisCache,
		},
	})
	r := httphandler.SetupRouter(handlers, httphandler.RouterOptions{
		Logger:      logger,
		RateLimiter: rl,
		Idempotency: idemp,
	})

	if cfg.Booking.LockSweepInProcess {
		sweeper := locks.NewSweeper(lockManager, cfg.Booking.LockSweepInterval, notifier, logger)
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown Server ...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server stopped with error")
	}
	logger.Info("Server exiting")
}
