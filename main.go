package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"example.com/shoecart/internal/config"
	cartdom "example.com/shoecart/internal/domain/cart"
	productdom "example.com/shoecart/internal/domain/product"
	"example.com/shoecart/internal/infra/inventory/httpapi"
	"example.com/shoecart/internal/infra/logging"
	"example.com/shoecart/internal/infra/metrics"
	"example.com/shoecart/internal/infra/notify"
	"example.com/shoecart/internal/infra/persistence/memory"
	"example.com/shoecart/internal/infra/persistence/mysql"
	"example.com/shoecart/internal/infra/persistence/postgres"
	"example.com/shoecart/internal/infra/persistence/redis"
	"example.com/shoecart/internal/infra/security"
	"example.com/shoecart/internal/infra/tracing"
	transport "example.com/shoecart/internal/interface/http"
	cartuc "example.com/shoecart/internal/usecase/cart"
	productuc "example.com/shoecart/internal/usecase/product"
	sessionuc "example.com/shoecart/internal/usecase/session"
)

const (
	serviceName = "shoecart"
	version     = "0.1.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Options{
		Service: serviceName,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Pretty:  cfg.App.Env == "dev",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("shoecart stopped")
	}
	log.Info().Msg("bye")
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName: serviceName,
		Version:     version,
		Endpoint:    cfg.Tracing.Endpoint,
		Probability: cfg.Tracing.Probability,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error().Err(err).Msg("tracer shutdown")
		}
	}()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Error().Err(err).Msg("close resource")
			}
		}
	}()

	pools := newSQLPools()
	closers = append(closers, pools)

	storage, closer, err := openStorage(ctx, cfg.Storage, pools)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	inventory, closer, err := openInventory(ctx, cfg.Inventory, pools)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	feed := notify.NewFeed(cfg.Notify.FeedCapacity)
	notifiers := notify.Multi{notify.NewLogger(log), feed}
	if len(cfg.Notify.KafkaBrokers) > 0 {
		writer := notify.NewKafkaWriter(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic)
		closers = append(closers, writer)
		notifiers = append(notifiers, notify.NewKafka(writer, log))
	}

	m := metrics.New()
	carts := cartuc.NewRegistry(cfg.Storage.KeyPrefix, cartuc.Dependencies{
		Inventory: inventory,
		Storage:   storage,
		Notifier:  notifiers,
		Metrics:   m,
		Logger:    log,
	}, cartuc.WithIdleTTL(cfg.Storage.CartIdleTTL))

	api := transport.NewAPI(transport.Dependencies{
		SessionService: sessionuc.NewService(security.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)),
		Carts:          carts,
		ProductService: productuc.NewService(inventory),
		Feed:           feed,
		Metrics:        m,
		MetricsHandler: m.Handler(),
		Logger:         log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("storage", cfg.Storage.Driver).
			Str("inventory", cfg.Inventory.Driver).
			Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sqlPools opens each MySQL DSN once so storage and inventory can share a pool.
type sqlPools struct {
	open  func(ctx context.Context, dsn string) (*sql.DB, error)
	pools map[string]*sql.DB
}

func newSQLPools() *sqlPools {
	return &sqlPools{open: mysql.Open, pools: make(map[string]*sql.DB)}
}

func (p *sqlPools) get(ctx context.Context, dsn string) (*sql.DB, error) {
	if db, ok := p.pools[dsn]; ok {
		return db, nil
	}
	db, err := p.open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	p.pools[dsn] = db
	return db, nil
}

func (p *sqlPools) Close() error {
	var errs []error
	for dsn, db := range p.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.pools, dsn)
	}
	return errors.Join(errs...)
}

func openStorage(ctx context.Context, cfg config.StorageConfig, pools *sqlPools) (cartdom.SnapshotStore, io.Closer, error) {
	switch cfg.Driver {
	case "mysql":
		db, err := pools.get(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		repo := mysql.NewSnapshotRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	case "postgres":
		pool, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		repo := postgres.NewSnapshotRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, closerFunc(func() error { pool.Close(); return nil }), nil
	case "redis":
		client := redis.NewClient(cfg.DSN)
		repo := redis.NewSnapshotRepository(client, cfg.TTL)
		if err := repo.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return repo, client, nil
	default:
		return memory.NewSnapshotRepository(), nil, nil
	}
}

func openInventory(ctx context.Context, cfg config.InventoryConfig, pools *sqlPools) (productdom.Inventory, io.Closer, error) {
	if cfg.Driver == "mysql" {
		db, err := pools.get(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return mysql.NewInventoryRepository(db), nil, nil
	}
	client, err := httpapi.NewClient(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	return client, nil, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
