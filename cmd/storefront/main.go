package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/server"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	logger := logging.NewLogger("storefront-service", cfg.LogLevel)
	defer logger.Sync()

	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", logging.Fields{"error": err.Error()})
	}
	defer db.Close()

	if err := repository.Migrate(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", logging.Fields{"error": err.Error()})
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	m := metrics.New(prometheus.DefaultRegisterer)

	carts := newCartRepository(cfg, db, redisClient, logger)
	cat := newCatalog(cfg, db, redisClient, logger)

	var orderCache repository.OrderCache
	if cfg.Features.EnableOrderCaching {
		orderCache = repository.NewRedisOrderCache(redisClient, cfg.Redis.TTL, logger)
	}

	var notifier clients.NotificationSender
	if cfg.Features.EnableNotifications {
		notifier = clients.NewHTTPNotificationClient(cfg.NotificationService, logger)
	}

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if cfg.Features.EnableCheckoutEvents {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	cartService := service.NewCartService(carts, cat, m, logger)
	materializer := service.NewMaterializer(carts, cat)
	orderService := service.NewOrderService(
		repository.NewPostgresOrderRepository(db, logger),
		orderCache,
		cfg,
		logger,
	)
	intents := repository.NewPostgresIntentRepository(db, logger)

	checkoutService := service.NewCheckoutService(
		materializer,
		cartService,
		orderService,
		intents,
		newPaymentGateway(cfg, logger),
		notifier,
		publisher,
		cfg.Checkout,
		m,
		logger,
	)

	reconciler := service.NewReconciler(intents, orderService, cartService, cfg.Reconciler, m, logger)

	h := handlers.NewHandlers(cartService, materializer, checkoutService, orderService, cat, cfg, logger)
	h.AddReadinessCheck("postgres", db.PingContext)
	h.AddReadinessCheck("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	srv := server.New(h, cfg, m, prometheus.DefaultGatherer, logger)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":           cfg.Server.Port,
			"cart_backend":   cfg.CartBackend,
			"payment_mode":   cfg.PaymentMode,
			"checkout_event": cfg.Features.EnableCheckoutEvents,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	if cfg.Features.EnableReconciler {
		go reconciler.Run(bgCtx)
	}

	var consumer *events.KafkaConsumer
	if cfg.Features.EnableReconciler && cfg.Features.EnableCheckoutEvents {
		consumer = events.NewKafkaConsumer(cfg.Kafka, reconciler, logger)
		go func() {
			if err := consumer.Start(bgCtx); err != nil && err != context.Canceled {
				logger.Error("Event consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if consumer != nil {
		consumer.Stop()
	}
	stopBackground()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited")
}

func initDatabase(cfg *config.Config, logger *logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	logger.Info("Database connected", logging.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})

	return db, nil
}

func newCartRepository(cfg *config.Config, db *sql.DB, client *redis.Client, logger *logging.Logger) repository.CartRepository {
	switch cfg.CartBackend {
	case config.CartBackendRedis:
		return repository.NewRedisCartRepository(client, logger)
	case config.CartBackendPostgres:
		return repository.NewPostgresCartRepository(db, logger)
	default:
		logger.Warn("Unknown cart backend, using postgres", logging.Fields{"cart_backend": cfg.CartBackend})
		return repository.NewPostgresCartRepository(db, logger)
	}
}

func newCatalog(cfg *config.Config, db *sql.DB, client *redis.Client, logger *logging.Logger) catalog.Accessor {
	var cat catalog.Accessor = catalog.NewPostgresCatalog(db, logger)
	if cfg.Features.EnableCatalogCaching {
		cat = catalog.NewCachedCatalog(cat, client, cfg.Redis.TTL, logger)
	}
	return cat
}

func newPaymentGateway(cfg *config.Config, logger *logging.Logger) clients.PaymentGateway {
	if cfg.PaymentMode == config.PaymentModeHTTP {
		return clients.NewHTTPPaymentClient(cfg.PaymentService, logger)
	}
	return clients.NewMockPaymentGateway(cfg.Checkout.MockSuccessRate, cfg.Checkout.MockDelay, nil, logger)
}
