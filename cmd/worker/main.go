package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/freshmart/grocery-service/internal/config"
	"github.com/freshmart/grocery-service/internal/inventory"
	"github.com/freshmart/grocery-service/internal/messaging"
	"github.com/freshmart/grocery-service/internal/notify"
	"github.com/freshmart/grocery-service/internal/orders"
	"github.com/freshmart/grocery-service/internal/telemetry"
	"github.com/freshmart/grocery-service/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("fulfillment-worker")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	if cfg.NotifyServiceURL == "" {
		logger.Error("NOTIFY_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, messaging.TopicOrderPlaced, "fulfillment-worker")
	defer func() { _ = consumer.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	orderRepo := orders.NewOrderRepository(db)
	productRepo := inventory.NewProductRepository(db, cfg.AdjustmentPolicy)
	notifier := notify.NewClient(cfg.NotifyServiceURL, httpClient)

	handler := worker.NewFulfillmentHandler(orderRepo, productRepo, notifier, cfg.OpsEmail, cfg.LowStockThreshold, logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting fulfillment worker", "brokers", cfg.KafkaBrokers)

	if err := consumer.Consume(ctx, handler.Handle); err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
