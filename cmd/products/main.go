package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"product-catalog/internal/config"
	"product-catalog/internal/products"
	producthttp "product-catalog/internal/products/http"
	"product-catalog/internal/products/imagestore"
	"product-catalog/internal/products/messaging"
	"product-catalog/internal/products/repository"
	"product-catalog/internal/products/service"
	"product-catalog/internal/products/web"
	"product-catalog/internal/telemetry"

	_ "product-catalog/docs"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	metricCreatedTotal        = "products_created_total"
	metricUpdatedTotal        = "products_updated_total"
	metricDeletedTotal        = "products_deleted_total"
	metricImagesUploadedTotal = "product_images_uploaded_total"
	migrateSourcePrefix       = "file://"
	postgresDriverName        = "postgres"
)

type productStore interface {
	service.Repository
	producthttp.HealthChecker
}

type imageBackend interface {
	service.ImageStore
	producthttp.ImageSource
}

// @title        Product Catalog API
// @version      1.0
// @description  Product catalog with image uploads, filtering and event notifications.
// @host         localhost:8080
// @BasePath     /
func main() {
	_ = godotenv.Load()

	logger := telemetry.NewLogger(os.Stdout)

	os.Exit(run(logger))
}

func run(logger *slog.Logger) int {
	cfg, err := config.LoadProducts()
	if err != nil {
		logger.Error("load config", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		logger.Error("init tracing", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown tracing", "error", err)
		}
	}()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("open product store", "driver", cfg.StoreDriver, "error", err)
		return 1
	}
	defer closeStore()

	images, imageCheckers, closeImages, err := openImageStore(ctx, cfg)
	if err != nil {
		logger.Error("open image store", "backend", cfg.ImageStore, "error", err)
		return 1
	}
	defer closeImages()

	publisher, closePublisher, err := openPublisher(cfg, logger)
	if err != nil {
		logger.Error("init publisher", "error", err)
		return 1
	}
	defer closePublisher()

	metrics := service.Metrics{
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricCreatedTotal,
			Help: "Total number of products created",
		}),
		Updated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricUpdatedTotal,
			Help: "Total number of products updated",
		}),
		Deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricDeletedTotal,
			Help: "Total number of products deleted",
		}),
		ImagesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricImagesUploadedTotal,
			Help: "Total number of product images stored",
		}),
	}
	prometheus.MustRegister(metrics.Created, metrics.Updated, metrics.Deleted, metrics.ImagesUploaded)

	svc := service.New(store, images, publisher, logger, metrics)

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	router.Use(gin.Recovery())
	router.Use(producthttp.RequestIDMiddleware())
	router.Use(producthttp.TracingMiddleware())
	router.Use(producthttp.AccessLogMiddleware(logger))

	checkers := append([]producthttp.HealthChecker{store}, imageCheckers...)
	producthttp.RegisterRoutes(router,
		producthttp.NewHandler(svc, cfg.MaxUploadBytes),
		producthttp.NewImageHandler(images),
		checkers...,
	)
	web.RegisterRoutes(router, web.NewHandler(svc, cfg.MaxUploadBytes))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("products service started",
			"addr", cfg.HTTPAddr,
			"store", cfg.StoreDriver,
			"images", cfg.ImageStore,
			"events", cfg.RabbitMQURL != "",
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return 1
	}
	logger.Info("products service stopped")
	return exitCode
}

func openStore(ctx context.Context, cfg config.Products) (productStore, func(), error) {
	if cfg.StoreDriver == config.StoreDriverSQLite {
		repo, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	}

	if err := runMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open(postgresDriverName, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.DBPingTimeout)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	return repository.NewPostgres(db), func() { _ = db.Close() }, nil
}

func openImageStore(ctx context.Context, cfg config.Products) (imageBackend, []producthttp.HealthChecker, func(), error) {
	if cfg.ImageStore == config.ImageStoreJetStream {
		store, err := imagestore.NewJetStream(ctx, cfg.NATSURL, cfg.ImageBucket, cfg.ImageURLPrefix)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, []producthttp.HealthChecker{store}, func() { _ = store.Close() }, nil
	}

	store, err := imagestore.NewLocal(cfg.UploadDir, cfg.ImageURLPrefix)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, nil, func() {}, nil
}

func openPublisher(cfg config.Products, logger *slog.Logger) (service.Publisher, func(), error) {
	if cfg.RabbitMQURL == "" {
		logger.Warn("RABBITMQ_URL not set, product events are only logged")
		return messaging.NewLogPublisher(logger), func() {}, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	publisher, err := messaging.NewRabbitPublisher(conn, products.EventsQueue)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return publisher, func() {
		_ = publisher.Close()
		_ = conn.Close()
	}, nil
}

func runMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New(migrateSourcePrefix+migrationsPath, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
