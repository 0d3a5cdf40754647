package config

import (
	"fmt"
	"os"
	"time"

	"github.com/oakline/ledger/internal/models"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBSource    string
	RedisAddr   string
	MongoURI    string
	MongoDBName string
	AMQPURL     string // optional; empty disables event publishing
	Port        string
	Env         string
	SessionTTL  time.Duration
	// TransferLimit is the per-transaction ceiling in minor units.
	TransferLimit int64
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	cfg := &Config{
		DBSource:    dbSource,
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "ledger"),
		AMQPURL:     os.Getenv("AMQP_URL"),
		Port:        getEnv("SERVER_PORT", "8080"),
		Env:         getEnv("ENVIRONMENT", "development"),
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = ttl

	ceiling, err := decimal.NewFromString(getEnv("TRANSFER_LIMIT", "10000.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSFER_LIMIT: %w", err)
	}
	cfg.TransferLimit, err = models.ToMinorUnits(ceiling)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSFER_LIMIT: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
