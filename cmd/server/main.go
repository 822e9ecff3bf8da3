package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/freshmart/grocery-service/internal/checkout"
	"github.com/freshmart/grocery-service/internal/config"
	"github.com/freshmart/grocery-service/internal/inventory"
	"github.com/freshmart/grocery-service/internal/messaging"
	"github.com/freshmart/grocery-service/internal/orders"
	"github.com/freshmart/grocery-service/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("grocery-server")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderPlaced)
		defer func() { _ = producer.Close() }()
	}

	checkoutMetrics, err := telemetry.NewCheckoutMetrics()
	if err != nil {
		logger.Error("failed to create checkout metrics", "error", err)
		os.Exit(1)
	}

	productRepo := inventory.NewProductRepository(db, cfg.AdjustmentPolicy)
	orderRepo := orders.NewOrderRepository(db)
	verifier := checkout.NewVerifier(productRepo)
	committer := checkout.NewCommitter(orderRepo)

	productHandler := inventory.NewHandler(productRepo, logger)
	orderHandler := orders.NewHandler(verifier, committer, orderRepo, producer, checkoutMetrics, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("POST /products", telemetry.WithHTTPRoute(productHandler.HandleCreate))
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(productHandler.HandleList))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(productHandler.HandleGet))
	mux.HandleFunc("PATCH /products/{id}", telemetry.WithHTTPRoute(productHandler.HandleUpdate))
	mux.HandleFunc("DELETE /products/{id}", telemetry.WithHTTPRoute(productHandler.HandleDelete))
	mux.HandleFunc("POST /products/{id}/adjust", telemetry.WithHTTPRoute(productHandler.HandleAdjust))

	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(orderHandler.HandlePlace))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, cfg.ServiceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting grocery server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
