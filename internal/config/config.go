package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI       string
	MongoDatabase  string
	RedisURL       string
	ServerPort     string
	AuthServiceURL string

	GatewayBaseURL string
	GatewayKeyID   string
	GatewaySecret  string

	TaxRatePercent float64
	SweepInterval  time.Duration
}

func LoadConfig() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDatabase:  getEnv("MONGO_DB", "bizdirect"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ServerPort:     getEnv("SERVER_PORT", ":8006"),
		AuthServiceURL: os.Getenv("AUTH_SERVICE_URL"),
		GatewayBaseURL: os.Getenv("GATEWAY_BASE_URL"),
		GatewayKeyID:   os.Getenv("GATEWAY_KEY_ID"),
		GatewaySecret:  os.Getenv("GATEWAY_SECRET"),
		TaxRatePercent: 18,
		SweepInterval:  time.Hour,
	}

	if v := os.Getenv("TAX_RATE_PERCENT"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		cfg.TaxRatePercent = rate
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, err
		}
		cfg.SweepInterval = d
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
