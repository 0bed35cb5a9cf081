package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/robertarktes/workshop-bookings/internal/availability"
)

type Config struct {
	HTTP    HTTPConfig
	DB      DBConfig
	Redis   RedisConfig
	Rabbit  RabbitConfig
	Mongo   MongoConfig
	Booking BookingConfig
	Outbox  OutboxConfig
	Log     LogConfig

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

type HTTPConfig struct {
	Addr               string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout    time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"5s"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30"`
	IdempotencyTTL     time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
}

type DBConfig struct {
	DSN        string        `envconfig:"CRDB_DSN" required:"true"`
	Timeout    time.Duration `envconfig:"DB_TIMEOUT" default:"5s"`
	TxRetries  int           `envconfig:"DB_TX_RETRIES" default:"3"`
	AutoSchema bool          `envconfig:"DB_AUTO_SCHEMA" default:"false"`
}

type RedisConfig struct {
	Addr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
}

type RabbitConfig struct {
	URL string `envconfig:"RABBIT_URL"`
}

type MongoConfig struct {
	URI      string `envconfig:"MONGO_URI"`
	Database string `envconfig:"MONGO_DATABASE" default:"workshop_bookings"`
}

// BookingConfig is the booking-window and slot policy.
type BookingConfig struct {
	MinBookingHours    int           `envconfig:"MIN_BOOKING_HOURS" default:"48"`
	MaxBookingMonths   int           `envconfig:"MAX_BOOKING_MONTHS" default:"3"`
	BufferMinutes      int           `envconfig:"BUFFER_MINUTES" default:"15"`
	BookingLockMinutes int           `envconfig:"BOOKING_LOCK_MINUTES" default:"10"`
	SlotStepMinutes    int           `envconfig:"SLOT_STEP_MINUTES" default:"30"`
	LockSweepInterval  time.Duration `envconfig:"LOCK_SWEEP_INTERVAL" default:"5m"`
	LockSweepInProcess bool          `envconfig:"LOCK_SWEEP_IN_PROCESS" default:"true"`
	TimeZone           string        `envconfig:"TIMEZONE" default:"UTC"`
}

type OutboxConfig struct {
	PollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	BatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	b := c.Booking
	switch {
	case c.DB.DSN == "":
		return errors.New("CRDB_DSN is required")
	case b.MinBookingHours < 0:
		return errors.Newf("MIN_BOOKING_HOURS must not be negative, got %d", b.MinBookingHours)
	case b.MaxBookingMonths <= 0:
		return errors.Newf("MAX_BOOKING_MONTHS must be positive, got %d", b.MaxBookingMonths)
	case b.BufferMinutes < 0:
		return errors.Newf("BUFFER_MINUTES must not be negative, got %d", b.BufferMinutes)
	case b.BookingLockMinutes <= 0:
		return errors.Newf("BOOKING_LOCK_MINUTES must be positive, got %d", b.BookingLockMinutes)
	case b.SlotStepMinutes <= 0:
		return errors.Newf("SLOT_STEP_MINUTES must be positive, got %d", b.SlotStepMinutes)
	case b.LockSweepInterval <= 0:
		return errors.Newf("LOCK_SWEEP_INTERVAL must be positive, got %s", b.LockSweepInterval)
	case c.Outbox.BatchSize <= 0:
		return errors.Newf("OUTBOX_BATCH_SIZE must be positive, got %d", c.Outbox.BatchSize)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Booking.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid TIMEZONE %q", c.Booking.TimeZone)
	}
	return loc, nil
}

func (c *Config) Policy() (availability.Policy, error) {
	loc, err := c.Location()
	if err != nil {
		return availability.Policy{}, err
	}
	b := c.Booking
	return availability.Policy{
		MinLeadTime:      time.Duration(b.MinBookingHours) * time.Hour,
		MaxHorizonMonths: b.MaxBookingMonths,
		Buffer:           time.Duration(b.BufferMinutes) * time.Minute,
		SlotStep:         time.Duration(b.SlotStepMinutes) * time.Minute,
		Location:         loc,
	}, nil
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Booking.BookingLockMinutes) * time.Minute
}
