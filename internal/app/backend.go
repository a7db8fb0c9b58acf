package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxstd "github.com/jackc/pgx/v5/stdlib"
	"github.com/metinatakli/cinex-seat-engine/internal/booking"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/metinatakli/cinex-seat-engine/internal/hold"
	"github.com/metinatakli/cinex-seat-engine/internal/ledger"
	"github.com/metinatakli/cinex-seat-engine/internal/repository"
	"github.com/metinatakli/cinex-seat-engine/internal/seatstate"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// Stores groups the persistence of one deployment.
type Stores struct {
	Screenings   domain.ScreeningRepository
	Seats        domain.SeatStateStore
	Holds        domain.HoldRepository
	Reservations domain.ReservationRepository
	Payments     domain.PaymentRepository
}

// NewStores selects the backends named by cfg.SeatStore. The memory store
// keeps everything in process. The redis store keeps seat states in Redis and
// the rest in PostgreSQL.
func NewStores(cfg Config, db *pgxpool.Pool, rdb redis.UniversalClient, sink domain.SeatEventSink) (Stores, error) {
	if cfg.SeatStore == SeatStoreMemory {
		screenings := repository.NewMemoryScreeningRepository()

		return Stores{
			Screenings:   screenings,
			Seats:        seatstate.NewMemoryStore(sink),
			Holds:        repository.NewMemoryHoldRepository(),
			Reservations: repository.NewMemoryReservationRepository(screenings),
			Payments:     repository.NewMemoryPaymentRepository(),
		}, nil
	}

	if db == nil {
		return Stores{}, fmt.Errorf("seat store %q needs a database", cfg.SeatStore)
	}

	stores := Stores{
		Screenings:   repository.NewPostgresScreeningRepository(db),
		Holds:        repository.NewPostgresHoldRepository(db),
		Reservations: repository.NewPostgresReservationRepository(db),
		Payments:     repository.NewPostgresPaymentRepository(db),
	}

	switch cfg.SeatStore {
	case SeatStorePostgres:
		stores.Seats = repository.NewPostgresSeatStore(db, sink)
	case SeatStoreRedis:
		if rdb == nil {
			return Stores{}, errors.New("redis seat store needs a redis client")
		}
		stores.Seats = repository.NewRedisSeatStore(rdb, sink)
	default:
		return Stores{}, fmt.Errorf("unknown seat store %q", cfg.SeatStore)
	}

	return stores, nil
}

// NewBookingService wires the hold manager and the ledger over stores.
func NewBookingService(
	cfg Config,
	stores Stores,
	provider domain.PaymentProvider,
	publisher domain.ReservationEventPublisher,
	logger *slog.Logger) *booking.Orchestrator {

	holds := hold.NewManager(stores.Seats, stores.Holds,
		hold.WithLogger(logger),
		hold.WithDefaultTTL(cfg.Hold.TTL),
		hold.WithMaxSeats(cfg.Hold.MaxSeats),
	)

	reservationLedger := ledger.New(stores.Seats, stores.Holds, stores.Reservations, stores.Payments,
		ledger.WithLogger(logger),
		ledger.WithPublisher(publisher),
		ledger.WithPaymentWindow(cfg.Hold.PaymentWindow),
	)

	return booking.New(stores.Screenings, stores.Seats, holds, reservationLedger, stores.Payments,
		booking.WithLogger(logger),
		booking.WithHoldTTL(cfg.Hold.TTL),
		booking.WithPaymentProvider(provider),
	)
}

func NewSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	if client != nil {
		sessionManager.Store = goredisstore.New(client)
	}
	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	err := errors.Join(redisotel.InstrumentTracing(rdb), redisotel.InstrumentMetrics(rdb))
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to instrument redis client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// RunMigrations applies every pending migration found at source, e.g.
// "file://migrations".
func RunMigrations(dsn string, source string) error {
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	db := pgxstd.OpenDB(*config)
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("pgx migration driver error: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(source, "pgx", driver)
	if err != nil {
		return fmt.Errorf("migrate.New error: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}
