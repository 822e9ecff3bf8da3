package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/freshmart/grocery-service/internal/inventory"
)

// Config holds everything the binaries read from the environment. A .env
// file in the working directory is honored when present.
type Config struct {
	ServiceName    string
	ServiceVersion string

	PostgresURL  string
	Port         string
	KafkaBrokers []string

	AdjustmentPolicy  inventory.AdjustmentPolicy
	LowStockThreshold int

	NotifyServiceURL string
	OpsEmail         string
}

func Load(serviceName string) (*Config, error) {
	// Missing .env is fine; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName:       serviceName,
		ServiceVersion:    getenv("SERVICE_VERSION", "0.1.0"),
		PostgresURL:       os.Getenv("POSTGRES_URL"),
		Port:              getenv("PORT", "8081"),
		NotifyServiceURL:  os.Getenv("NOTIFY_SERVICE_URL"),
		OpsEmail:          getenv("OPS_EMAIL", "inventory-ops@example.com"),
		AdjustmentPolicy:  inventory.PolicyClamp,
		LowStockThreshold: 10,
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	switch policy := os.Getenv("INVENTORY_ADJUSTMENT_POLICY"); policy {
	case "", string(inventory.PolicyClamp):
	case string(inventory.PolicyReject):
		cfg.AdjustmentPolicy = inventory.PolicyReject
	default:
		return nil, fmt.Errorf("invalid INVENTORY_ADJUSTMENT_POLICY %q", policy)
	}

	if raw := os.Getenv("LOW_STOCK_THRESHOLD"); raw != "" {
		threshold, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LOW_STOCK_THRESHOLD %q: %w", raw, err)
		}
		cfg.LowStockThreshold = threshold
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
