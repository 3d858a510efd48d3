package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr        string
	DatabaseURL       string
	JWTSecret         string
	LowStockThreshold int
	SalesHistoryLimit int
	ReportDays        int
}

// LoadFromEnv reads configuration from the environment, after loading an
// optional .env file for local development.
func LoadFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:        envOrDefault("GAMENET_LISTEN_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("GAMENET_DATABASE_URL"),
		JWTSecret:         os.Getenv("GAMENET_JWT_SECRET"),
		LowStockThreshold: ParsePositiveIntEnv("GAMENET_LOW_STOCK_THRESHOLD", 5),
		SalesHistoryLimit: ParsePositiveIntEnv("GAMENET_SALES_HISTORY_LIMIT", 100),
		ReportDays:        ParsePositiveIntEnv("GAMENET_REPORT_DAYS", 7),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("GAMENET_DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("GAMENET_JWT_SECRET is required")
	}
	return cfg, nil
}

func envOrDefault(k, v string) string {
	if raw := os.Getenv(k); raw != "" {
		return raw
	}
	return v
}

func ParsePositiveIntEnv(k string, d int) int {
	raw := os.Getenv(k)
	if raw == "" {
		return d
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return d
	}
	return n
}
