package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/metinatakli/cinex-seat-engine/internal/ledger"
)

const (
	SeatStoreMemory   = "memory"
	SeatStorePostgres = "postgres"
	SeatStoreRedis    = "redis"
)

type Config struct {
	Port             int
	Env              string
	SeatStore        string
	AdminToken       string
	OtelCollectorUrl string
	DB               DBConfig
	Redis            RedisConfig
	Stripe           StripeConfig
	AMQP             AMQPConfig
	Hold             HoldConfig
}

type DBConfig struct {
	DSN            string
	MaxOpenConns   int
	MaxIdleTime    time.Duration
	MigrationsPath string
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessUrl    string
	FailureUrl    string
}

type AMQPConfig struct {
	URL string
}

type HoldConfig struct {
	TTL           time.Duration
	PaymentWindow time.Duration
	SweepInterval time.Duration
	MaxSeats      int
}

// parseConfig reads flags from args. Environment variables, optionally
// loaded from a .env file, provide the defaults.
func parseConfig(args []string) (Config, bool, error) {
	var cfg Config

	fs := flag.NewFlagSet("api", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "port", envInt("PORT", 3000), "server port")
	fs.StringVar(&cfg.Env, "env", envString("ENV", "dev"), "Environment (dev|staging|prod)")
	fs.StringVar(&cfg.SeatStore, "seat-store", envString("SEAT_STORE", SeatStorePostgres), "Seat state backend (memory|postgres|redis)")
	fs.StringVar(&cfg.AdminToken, "admin-token", envString("ADMIN_TOKEN", ""), "Bearer token for admin and internal routes")
	fs.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", envString("OTEL_COLLECTOR_URL", ""), "OpenTelemetry collector gRPC endpoint")

	fs.StringVar(&cfg.DB.DSN, "db-dsn", envString("DB_DSN", ""), "PostgreSQL DSN")
	fs.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", envInt("DB_MAX_OPEN_CONNS", 25), "PostgreSQL max open connections")
	fs.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", envDuration("DB_MAX_IDLE_TIME", 15*time.Minute), "PostgreSQL max idle time for connections")
	fs.StringVar(&cfg.DB.MigrationsPath, "db-migrations", envString("DB_MIGRATIONS", ""), "Apply migrations from this source on startup (e.g. file://migrations)")

	fs.StringVar(&cfg.Redis.URL, "redis-url", envString("REDIS_URL", ""), "Redis URL")
	fs.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", envInt("REDIS_MAX_OPEN_CONNS", 25), "Redis max open connections")
	fs.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", envInt("REDIS_MAX_IDLE_CONNS", 10), "Redis max idle connections")
	fs.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", envDuration("REDIS_MAX_IDLE_TIME", 2*time.Minute), "Redis max idle time for connections")

	fs.StringVar(&cfg.Stripe.SecretKey, "stripe-key", envString("STRIPE_KEY", ""), "Stripe secret key")
	fs.StringVar(&cfg.Stripe.WebhookSecret, "stripe-webhook-secret", envString("STRIPE_WEBHOOK_SECRET", ""), "Stripe webhook secret")
	fs.StringVar(&cfg.Stripe.SuccessUrl, "stripe-success-url", envString("STRIPE_SUCCESS_URL", "https://example.com/success.html"), "Stripe payment success page")
	fs.StringVar(&cfg.Stripe.FailureUrl, "stripe-failure-url", envString("STRIPE_FAILURE_URL", "https://example.com/failure.html"), "Stripe payment failure page")

	fs.StringVar(&cfg.AMQP.URL, "amqp-url", envString("AMQP_URL", ""), "RabbitMQ URL for booking events")

	fs.DurationVar(&cfg.Hold.TTL, "hold-ttl", envDuration("HOLD_TTL", 10*time.Minute), "How long held seats stay claimed")
	fs.DurationVar(&cfg.Hold.PaymentWindow, "payment-window", envDuration("PAYMENT_WINDOW", ledger.DefaultPaymentWindow), "How long a checked out reservation waits for payment (at least 30m with Stripe)")
	fs.DurationVar(&cfg.Hold.SweepInterval, "sweep-interval", envDuration("SWEEP_INTERVAL", 30*time.Second), "Interval between expired hold sweeps")
	fs.IntVar(&cfg.Hold.MaxSeats, "hold-max-seats", envInt("HOLD_MAX_SEATS", 8), "Maximum seats per hold")

	displayVersion := fs.Bool("version", false, "Display version and exit")

	err := fs.Parse(args)
	if err != nil {
		return Config{}, false, err
	}

	if *displayVersion {
		return cfg, true, nil
	}

	return cfg, false, cfg.validate()
}

func (cfg Config) validate() error {
	var errs []error

	switch cfg.SeatStore {
	case SeatStoreMemory:
	case SeatStorePostgres, SeatStoreRedis:
		if cfg.DB.DSN == "" {
			errs = append(errs, fmt.Errorf("-db-dsn is required for the %s seat store", cfg.SeatStore))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown seat store %q", cfg.SeatStore))
	}

	if cfg.SeatStore == SeatStoreRedis && cfg.Redis.URL == "" {
		errs = append(errs, errors.New("-redis-url is required for the redis seat store"))
	}

	if cfg.Hold.TTL <= 0 {
		errs = append(errs, errors.New("-hold-ttl must be positive"))
	}

	switch {
	case cfg.Hold.PaymentWindow <= 0:
		errs = append(errs, errors.New("-payment-window must be positive"))
	case cfg.Stripe.SecretKey != "" && cfg.Hold.PaymentWindow < 30*time.Minute:
		errs = append(errs, errors.New("-payment-window must be at least 30m when -stripe-key is set"))
	}

	if cfg.Hold.SweepInterval <= 0 {
		errs = append(errs, errors.New("-sweep-interval must be positive"))
	}

	if cfg.Hold.MaxSeats < 1 {
		errs = append(errs, errors.New("-hold-max-seats must be at least 1"))
	}

	if cfg.Stripe.SecretKey != "" && cfg.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("-stripe-webhook-secret is required when -stripe-key is set"))
	}

	return errors.Join(errs...)
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}

	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}

	return v
}
