package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/metinatakli/cinex-seat-engine/internal/booking"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/metinatakli/cinex-seat-engine/internal/events"
	"github.com/metinatakli/cinex-seat-engine/internal/payment"
	appvalidator "github.com/metinatakli/cinex-seat-engine/internal/validator"
	"github.com/metinatakli/cinex-seat-engine/internal/vcs"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const serviceName = "cinex-seat-engine"

var (
	version = vcs.Version()
)

type Application struct {
	config         Config
	logger         *slog.Logger
	validator      *validator.Validate
	sessionManager *scs.SessionManager
	booking        *booking.Orchestrator
	webhooks       PaymentWebhook
	wg             sync.WaitGroup
}

func NewApp(
	cfg Config,
	logger *slog.Logger,
	validator *validator.Validate,
	sessionManager *scs.SessionManager,
	booking *booking.Orchestrator,
	webhooks PaymentWebhook) *Application {

	return &Application{
		config:         cfg,
		logger:         logger,
		validator:      validator,
		sessionManager: sessionManager,
		booking:        booking,
		webhooks:       webhooks,
	}
}

func Run() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, displayVersion, err := parseConfig(os.Args[1:])
	if err != nil {
		return err
	}

	if displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	textHandler := slog.NewTextHandler(os.Stdout, nil)
	logger := slog.New(textHandler)

	shutdownTelemetry, err := InitTelemetry(cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.OtelCollectorUrl != "" {
		logger = slog.New(NewMultiHandler(textHandler, otelslog.NewHandler(serviceName)))
	}

	if cfg.AdminToken == "" {
		logger.Warn("admin token not set, operator and payment callback routes reject every request")
	}

	var db *pgxpool.Pool
	if cfg.DB.DSN != "" {
		if cfg.DB.MigrationsPath != "" {
			err = RunMigrations(cfg.DB.DSN, cfg.DB.MigrationsPath)
			if err != nil {
				return err
			}
		}

		db, err = NewDatabasePool(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = NewRedisClient(cfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	bus, err := newSeatEventBus(logger)
	if err != nil {
		return err
	}

	var rdb redis.UniversalClient
	if redisClient != nil {
		rdb = redisClient
	}

	stores, err := NewStores(cfg, db, rdb, bus)
	if err != nil {
		return err
	}

	app := NewApp(
		cfg,
		logger,
		appvalidator.NewValidator(),
		NewSessionManager(redisClient),
		NewBookingService(cfg, stores, newPaymentProvider(cfg), publisher, logger),
		payment.NewWebhookTranslator(cfg.Stripe.WebhookSecret),
	)

	return app.serve()
}

func newPaymentProvider(cfg Config) domain.PaymentProvider {
	if cfg.Stripe.SecretKey == "" {
		return payment.NewMockPaymentProvider(cfg.Stripe.SuccessUrl)
	}

	stripe.Key = cfg.Stripe.SecretKey

	return payment.NewStripePaymentProvider(cfg.Stripe.FailureUrl, cfg.Stripe.SuccessUrl)
}

func newPublisher(cfg Config, logger *slog.Logger) (domain.ReservationEventPublisher, func(), error) {
	if cfg.AMQP.URL == "" {
		logger.Info("AMQP URL not set, booking events are only logged")
		return events.NewLogPublisher(logger), func() {}, nil
	}

	publisher, err := events.NewAMQPPublisher(cfg.AMQP.URL)
	if err != nil {
		return nil, nil, err
	}

	closePublisher := func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close amqp publisher", "error", err)
		}
	}

	return publisher, closePublisher, nil
}

func newSeatEventBus(logger *slog.Logger) (*events.Bus, error) {
	bus := events.NewBus()
	bus.Subscribe(events.LogSeatChanges(logger))

	counter, err := events.CountSeatChanges()
	if err != nil {
		return nil, err
	}
	bus.Subscribe(counter)

	return bus, nil
}

func (app *Application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	app.startHoldSweeper(ctx, app.config.Hold.SweepInterval)

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			shutdownError <- err
			return
		}

		stopBackground()

		app.logger.Info("completing background tasks", "addr", srv.Addr)
		app.wg.Wait()

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "seat_store", app.config.SeatStore)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
