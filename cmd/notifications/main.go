package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"product-catalog/internal/config"
	"product-catalog/internal/notifications"
	"product-catalog/internal/products"
	"product-catalog/internal/telemetry"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	_ = godotenv.Load()

	logger := telemetry.NewLogger(os.Stdout)

	os.Exit(run(logger))
}

func run(logger *slog.Logger) int {
	cfg, err := config.LoadNotifications()
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

	consumer, closeConsumer, err := openConsumer(cfg, logger)
	if err != nil {
		logger.Error("init consumer", "error", err)
		return 1
	}
	defer closeConsumer()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("notifications service started", "queue", products.EventsQueue)
		errCh <- consumer.Listen(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("consumer failed", "error", err)
			return 1
		}
		logger.Info("notifications service stopped")
		return 0
	}

	if err := drain(errCh, cfg.ShutdownTimeout); err != nil {
		logger.Error("consumer stop failed", "error", err)
		return 1
	}
	logger.Info("notifications service stopped")
	return 0
}

func openConsumer(cfg config.Notifications, logger *slog.Logger) (*notifications.Consumer, func(), error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	consumer, err := notifications.NewConsumer(conn, products.EventsQueue, logger)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return consumer, func() {
		_ = consumer.Close()
		_ = conn.Close()
	}, nil
}

// drain waits for the in-flight message to be acked after cancellation.
func drain(errCh <-chan error, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case err := <-errCh:
		return err
	case <-deadline.C:
		return fmt.Errorf("consumer did not stop within %s", timeout)
	}
}
