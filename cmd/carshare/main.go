package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"carshare/internal/bootstrap"
	"carshare/internal/domain/favorites"
	"carshare/internal/infra/broker/kafka"
	"carshare/internal/infra/config"
	mongodb "carshare/internal/infra/db/mongo"
	"carshare/internal/infra/db/postgres"
	ginserver "carshare/internal/infra/http/gin"
	"carshare/internal/infra/obs"
	outboxworker "carshare/internal/infra/outbox"
	"carshare/internal/infra/schedule"
	"carshare/internal/infra/storage/memory"
	"carshare/internal/infra/storage/redisstore"
	"carshare/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("carshare stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("carshare stopped")
}

// runtime holds the adapters selected by configuration and the cleanup they
// need on shutdown.
type runtime struct {
	deps    bootstrap.Deps
	outbox  outboxworker.Store
	checks  map[string]obs.Check
	closers []func(context.Context)
}

func (r *runtime) close(ctx context.Context) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i](ctx)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	rt, err := connect(ctx, cfg, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		rt.close(shutdownCtx)
	}()
	if err != nil {
		return err
	}

	app, err := bootstrap.Build(rt.deps)
	if err != nil {
		return err
	}
	if cfg.CarsFixtures != "" {
		if err := loadFixtures(ctx, app.Commands, cfg.CarsFixtures, logger); err != nil {
			logger.Warn("car fixtures load failed", "path", cfg.CarsFixtures, "err", err)
		}
	}

	handlers := app.Handlers
	handlers.AuthMiddleware = ginserver.AuthMiddleware{
		Secret:     []byte(cfg.Auth.JWTSecret),
		Issuer:     cfg.Auth.JWTIssuer,
		DevHeaders: cfg.Auth.DevHeaders,
		Logger:     logger,
	}.Handle
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: rt.checks}, handlers)

	producer, err := newProducer(cfg, logger)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, func(context.Context) { _ = producer.Close() })
	worker := &outboxworker.Worker{
		Store:       rt.outbox,
		Producer:    producer,
		Interval:    cfg.Kafka.PollInterval,
		TopicPrefix: cfg.Kafka.TopicPrefix,
		Source:      "carshare",
		ID:          uuid.NewString(),
		Backoff:     cfg.Kafka.RetryBackoff,
		Logger:      logger,
	}

	scheduler := schedule.New(app.Commands, logger)
	if err := scheduler.Register(schedule.BookingJobs(cfg.Bookings.ExpirySchedule, cfg.Bookings.PendingTTL)...); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "err", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "outbox worker")
		}
		return nil
	})
	g.Go(func() error { return scheduler.Run(gctx) })
	return g.Wait()
}

// connect selects storage and the optional adapters. The returned runtime is
// usable for cleanup even when err is not nil.
func connect(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{checks: map[string]obs.Check{}}
	table, err := cfg.MembershipTable()
	if err != nil {
		return rt, err
	}
	rt.deps = bootstrap.Deps{Memberships: table, Logger: logger}

	switch cfg.Storage {
	case config.StorageMongo:
		client, err := mongodb.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return rt, err
		}
		rt.closers = append(rt.closers, func(ctx context.Context) { _ = client.Close(ctx) })
		rt.checks["mongo"] = client.Ping
		if err := client.EnsureIndexes(ctx); err != nil {
			return rt, err
		}
		box, err := outboxworker.NewMongoStore(ctx, client.DB)
		if err != nil {
			return rt, err
		}
		idem, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
		if err != nil {
			return rt, err
		}
		rt.deps.UoWFactory = mongodb.NewFactory(client.DB)
		rt.deps.Outbox = box
		rt.deps.Idempotency = idem
		rt.outbox = box
	default:
		store := memory.NewStore()
		box := memory.NewOutbox()
		box.Attach(store)
		rt.deps.UoWFactory = memory.Factory{Store: store}
		rt.deps.Outbox = box
		rt.deps.Idempotency = memory.NewIdempotencyStore()
		rt.outbox = box
	}

	if cfg.Ledger.DSN != "" {
		pool, err := postgres.Connect(ctx, cfg.Ledger.DSN, cfg.Ledger.MaxConns)
		if err != nil {
			return rt, err
		}
		rt.closers = append(rt.closers, func(context.Context) { pool.Close() })
		ledger := postgres.NewLedger(pool)
		rt.deps.Ledger = ledger
		rt.checks["postgres"] = ledger.Ping
		logger.Info("booking ledger enabled")
	}

	rt.deps.Favorites = favoritesStore(cfg, rt, logger)

	if cfg.S3.Endpoint != "" {
		photos, err := s3.NewPhotoStorage(s3.Options{
			Endpoint:       cfg.S3.Endpoint,
			PublicEndpoint: cfg.S3.PublicEndpoint,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			Bucket:         cfg.S3.Bucket,
			UseSSL:         cfg.S3.UseSSL,
		}, logger)
		if err != nil {
			return rt, err
		}
		rt.deps.Photos = photos
		rt.checks["s3"] = photos.Ping
	}
	return rt, nil
}

func favoritesStore(cfg config.Config, rt *runtime, logger *slog.Logger) favorites.Store {
	if cfg.Redis.Addr == "" {
		return memory.NewFavorites()
	}
	rdb := redisstore.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rt.closers = append(rt.closers, func(context.Context) { _ = rdb.Close() })
	rt.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	logger.Info("favorites stored in redis", "addr", cfg.Redis.Addr)
	return redisstore.NewFavorites(rdb, cfg.Redis.Prefix)
}

type publisher interface {
	outboxworker.Producer
	Close() error
}

func newProducer(cfg config.Config, logger *slog.Logger) (publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("kafka not configured, outbox events are logged")
		return logProducer{logger: logger}, nil
	}
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, kafka.NewConfig("carshare"))
	if err != nil {
		return nil, err
	}
	logger.Info("kafka producer connected", "brokers", strings.Join(cfg.Kafka.Brokers, ","))
	return producer, nil
}

// logProducer drains the outbox into the log when no broker is configured.
type logProducer struct {
	logger *slog.Logger
}

func (p logProducer) Publish(ctx context.Context, topic, key string, payload []byte, _ map[string]string) error {
	p.logger.DebugContext(ctx, "event published", "topic", topic, "key", key, "bytes", len(payload))
	return nil
}

func (logProducer) Close() error { return nil }
