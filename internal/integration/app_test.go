package integration_test

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-seat-engine/internal/app"
	"github.com/metinatakli/cinex-seat-engine/internal/booking"
	"github.com/metinatakli/cinex-seat-engine/internal/events"
	"github.com/metinatakli/cinex-seat-engine/internal/payment"
	appvalidator "github.com/metinatakli/cinex-seat-engine/internal/validator"
	"github.com/redis/go-redis/v9"
)

type TestApp struct {
	App      *app.Application
	Handler  http.Handler
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Sessions *scs.SessionManager
	Booking  *booking.Orchestrator
	Stores   app.Stores
	Bus      *events.Bus
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	validator := appvalidator.NewValidator()

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	bus := events.NewBus()
	bus.Subscribe(events.LogSeatChanges(logger))

	stores, err := app.NewStores(cfg, db, redisClient, bus)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, err
	}

	sessionManager := app.NewSessionManager(redisClient)
	paymentProvider := payment.NewMockPaymentProvider(cfg.Stripe.SuccessUrl)

	bookingService := app.NewBookingService(cfg, stores, paymentProvider, events.NewLogPublisher(logger), logger)

	application := app.NewApp(
		cfg,
		logger,
		validator,
		sessionManager,
		bookingService,
		payment.NewWebhookTranslator(cfg.Stripe.WebhookSecret),
	)

	return &TestApp{
		App:      application,
		Handler:  application.Routes(),
		DB:       db,
		Redis:    redisClient,
		Sessions: sessionManager,
		Booking:  bookingService,
		Stores:   stores,
		Bus:      bus,
	}, nil
}

func (a *TestApp) Close() {
	a.DB.Close()
	a.Redis.Close()
}
