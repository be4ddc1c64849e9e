// Package main runs the rental lifecycle API.
//
// @title           Rental Lifecycle API
// @version         1.0
// @description     Movie rentals: rent, return requests, approvals and integrity checks.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/videorental/rental-lifecycle/docs"
	"github.com/videorental/rental-lifecycle/internal/api"
	"github.com/videorental/rental-lifecycle/internal/api/metrics"
	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
	"github.com/videorental/rental-lifecycle/internal/core/service"
	"github.com/videorental/rental-lifecycle/internal/infrastructure/db/memory"
	"github.com/videorental/rental-lifecycle/internal/infrastructure/db/mongo"
	"github.com/videorental/rental-lifecycle/internal/infrastructure/db/postgres"
	"github.com/videorental/rental-lifecycle/internal/infrastructure/db/redis"
	"github.com/videorental/rental-lifecycle/internal/infrastructure/queue"
	"github.com/videorental/rental-lifecycle/internal/pkg/config"
	"github.com/videorental/rental-lifecycle/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "rental-lifecycle",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	pingers := make(map[string]ports.Pinger)

	// --- Storage ---
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("store close failed")
		}
	}()
	pingers[cfg.StorageBackend] = store

	// --- Locks ---
	var locker ports.Locker
	switch cfg.LockBackend {
	case config.BackendRedis:
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		redisLocker := redis.NewLocker(rdb, cfg.Redis.LockTTL, log)
		locker = redisLocker
		pingers["redis"] = redisLocker
	default:
		locker = memory.NewLocker()
	}

	// --- Audit trail ---
	recorder := metrics.NewRecorder()
	auditService := service.NewAuditService(store, log)
	dispatcher := queue.NewDispatcher(cfg.Rental.AuditWorkers, auditService, recorder, log)
	dispatcher.Start(context.Background())
	defer dispatcher.Close()

	// --- Engine ---
	engine := service.NewRentalService(
		service.StoreDeps(store, locker),
		service.Policy{
			MaxActiveRentals: cfg.Rental.MaxActiveRentals,
			RentalPeriod:     cfg.Rental.RentalPeriod,
			OperationTimeout: cfg.Rental.OperationTimeout,
		},
		log,
		service.WithAuditPublisher(dispatcher),
		service.WithMetrics(recorder),
	)

	e := api.NewRouter(api.RouterDeps{
		Rentals:   engine,
		Audit:     auditService,
		JWTSecret: cfg.JWTSecret,
		Pingers:   pingers,
		Logger:    log,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("storage", cfg.StorageBackend).
			Str("locks", cfg.LockBackend).
			Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msg("http server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendMongo:
		return mongo.Open(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	case config.BackendPostgres:
		return postgres.Open(ctx, postgres.Config{DSN: cfg.Postgres.DSN, MaxConns: cfg.Postgres.MaxConns})
	default:
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		seedDemoCatalog(store)
		return store, nil
	}
}

// seedDemoCatalog gives the in-memory backend something to rent.
func seedDemoCatalog(store *memory.Store) {
	store.AddMovie(domain.Movie{ID: "m-alien", Title: "Alien", Genres: []string{"sci-fi", "horror"}, IsAvailable: true})
	store.AddMovie(domain.Movie{ID: "m-heat", Title: "Heat", Genres: []string{"crime"}, IsAvailable: true})
	store.AddMovie(domain.Movie{ID: "m-amelie", Title: "Amélie", Genres: []string{"comedy", "romance"}, IsAvailable: true})
	store.AddClient(domain.Client{ID: "c-ana", FirstName: "Ana", LastName: "Lopez", Email: "ana@example.com", Role: domain.RoleUser})
	store.AddClient(domain.Client{ID: "c-ben", FirstName: "Ben", LastName: "Okafor", Email: "ben@example.com", Role: domain.RoleUser})
}
