package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tair/stock-ledger/internal/app"
	"github.com/tair/stock-ledger/internal/checkout"
	"github.com/tair/stock-ledger/internal/config"
	httpDelivery "github.com/tair/stock-ledger/internal/delivery/http"
	"github.com/tair/stock-ledger/internal/metrics"
	"github.com/tair/stock-ledger/internal/notify"
	"github.com/tair/stock-ledger/internal/session"
	"github.com/tair/stock-ledger/internal/storage"
	"github.com/tair/stock-ledger/kafka"
	"github.com/tair/stock-ledger/pkg/database"
	"github.com/tair/stock-ledger/pkg/logger"
	"github.com/tair/stock-ledger/pkg/tracing"
)

func main() {
	cfg, loaded := config.Load()

	// Initialize logger
	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Str("store", cfg.StoreBackend).
		Bool("dotenv", loaded).
		Msg("Starting ledger service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(tracing.Config{
			ServiceName:    cfg.ServiceName,
			JaegerEndpoint: cfg.JaegerEndpoint,
		})
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	var redisClient *redis.Client
	if cfg.StoreBackend == config.BackendRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	store, cleanup, err := openStore(ctx, cfg, redisClient)
	if err != nil {
		logger.Logger.Fatal().Err(err).Str("store", cfg.StoreBackend).Msg("Failed to open store")
	}
	defer cleanup()

	// Change notifications: the in-process bus always, Redis and Kafka when configured
	bus := notify.NewBus()
	defer bus.Subscribe(notify.AllTopics, func(ctx context.Context, event notify.Event) {
		logger.Debug(ctx).
			Str("key", event.Key).
			Str("user", event.User).
			Str("origin", event.Origin).
			Msg("Ledger changed")
	})()
	notifiers := notify.Multi{bus}

	if redisClient != nil {
		redisNotifier := notify.NewRedisNotifier(redisClient, cfg.Redis.Channel)
		notifiers = append(notifiers, redisNotifier)
		go func() {
			if err := redisNotifier.Listen(ctx, bus); err != nil {
				logger.Logger.Error().Err(err).Msg("Redis change listener stopped")
			}
		}()
	}

	var announcer checkout.Announcer
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.KafkaBrokers)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka publisher")
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
		announcer = publisher

		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, []string{kafka.TopicLedgerChanges})
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka consumer")
		}
		defer consumer.Close()
		consumer.RegisterHandler(kafka.EventTypeLedgerChanged, kafka.ForwardChanges(bus, publisher.Origin()))
		if err := consumer.Start(ctx); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to start Kafka consumer")
		}
	}

	identity := session.FirstOf{
		session.ContextIdentity{},
		session.StoreIdentity{Store: store},
		session.StaticIdentity(cfg.DefaultUser),
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	// Initialize handler with Wire DI
	handler, err := app.InitializeHTTPHandler(store, notifiers, identity, collector, announcer, cfg.ReportOptions())
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize handler")
	}

	server := startHTTPServer(handler, store, cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
}

// openStore builds the configured backend and wraps it with tracing. cleanup
// releases the backend's connections.
func openStore(ctx context.Context, cfg config.Config, redisClient *redis.Client) (storage.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		logger.Logger.Info().Str("addr", cfg.Redis.Addr).Msg("Redis store connected")
		return storage.NewTracingStore(storage.NewRedisStore(redisClient, cfg.Redis.Prefix), "redis"), func() {}, nil

	case config.BackendPostgres:
		db, err := database.NewGormConnection(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		gormStore := storage.NewGormStore(db)
		if err := gormStore.AutoMigrate(); err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		logger.Logger.Info().Msg("Database initialized successfully")
		return storage.NewTracingStore(gormStore, "postgres"), func() { sqlDB.Close() }, nil

	case config.BackendMemory:
		logger.Logger.Warn().Msg("Using in-memory store, data is lost on restart")
		return storage.NewTracingStore(storage.NewMemoryStore(), "memory"), func() {}, nil
	}
	return nil, nil, errors.New("unknown store backend " + cfg.StoreBackend)
}

func startHTTPServer(handler *httpDelivery.LedgerHandler, store storage.Store, port string) *http.Server {
	// Setup router
	router := mux.NewRouter()

	middlewareConfig := httpDelivery.DefaultMiddlewareConfig()
	httpDelivery.RegisterMiddlewares(router, middlewareConfig)

	// Register routes
	handler.RegisterRoutes(router)

	// Health check endpoint
	handler.RegisterHealthCheck(router, func(ctx context.Context) error {
		_, _, err := store.Get(ctx, storage.CurrentUserKey)
		return err
	})

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           httpDelivery.SetupCORS(middlewareConfig)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Logger.Info().
			Str("port", port).
			Str("metrics_endpoint", "/metrics").
			Msg("HTTP server started")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()
	return server
}
